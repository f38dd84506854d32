package repository

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Field-assignment updates get a client-side updated_at injected into $set
// unless the caller already supplied one. Pipeline updates instead get a
// trailing $set stage using the server-side $$NOW sentinel, because a client
// timestamp cannot be interpolated mid-pipeline.

const updatedAtField = "updated_at"

// storeNow is the aggregation variable evaluated server-side at execution time.
const storeNow = "$$NOW"

func isPipelineUpdate(update any) bool {
	switch update.(type) {
	case mongo.Pipeline, bson.A, []bson.D, []bson.M, []any:
		return true
	}
	return false
}

// withUpdatedAt returns a copy of update carrying the timestamp injection.
// The caller's value is never mutated. Updates in shapes the helper does not
// recognize are passed through verbatim.
func withUpdatedAt(update any, now time.Time) any {
	if isPipelineUpdate(update) {
		return appendNowStage(update)
	}
	switch u := update.(type) {
	case bson.M:
		return injectIntoSetMap(map[string]any(u), now)
	case map[string]any:
		return injectIntoSetMap(u, now)
	case bson.D:
		return injectIntoSetDoc(u, now)
	}
	return update
}

func injectIntoSetMap(update map[string]any, now time.Time) bson.M {
	out := make(bson.M, len(update)+1)
	for k, v := range update {
		out[k] = v
	}
	switch set := out["$set"].(type) {
	case nil:
		out["$set"] = bson.M{updatedAtField: now}
	case bson.M:
		out["$set"] = copySetMap(map[string]any(set), now)
	case map[string]any:
		out["$set"] = copySetMap(set, now)
	case bson.D:
		if !docHasKey(set, updatedAtField) {
			cp := make(bson.D, len(set), len(set)+1)
			copy(cp, set)
			out["$set"] = append(cp, bson.E{Key: updatedAtField, Value: now})
		}
	}
	return out
}

func copySetMap(set map[string]any, now time.Time) bson.M {
	cp := make(bson.M, len(set)+1)
	for k, v := range set {
		cp[k] = v
	}
	if _, ok := cp[updatedAtField]; !ok {
		cp[updatedAtField] = now
	}
	return cp
}

func injectIntoSetDoc(update bson.D, now time.Time) bson.D {
	out := make(bson.D, len(update), len(update)+1)
	copy(out, update)
	for i, e := range out {
		if e.Key != "$set" {
			continue
		}
		switch set := e.Value.(type) {
		case bson.M:
			out[i].Value = copySetMap(map[string]any(set), now)
		case map[string]any:
			out[i].Value = copySetMap(set, now)
		case bson.D:
			if !docHasKey(set, updatedAtField) {
				cp := make(bson.D, len(set), len(set)+1)
				copy(cp, set)
				out[i].Value = append(cp, bson.E{Key: updatedAtField, Value: now})
			}
		}
		return out
	}
	return append(out, bson.E{Key: "$set", Value: bson.M{updatedAtField: now}})
}

func appendNowStage(update any) any {
	stage := bson.D{{Key: "$set", Value: bson.D{{Key: updatedAtField, Value: storeNow}}}}
	switch u := update.(type) {
	case mongo.Pipeline:
		out := make(mongo.Pipeline, len(u), len(u)+1)
		copy(out, u)
		return append(out, stage)
	case []bson.D:
		out := make([]bson.D, len(u), len(u)+1)
		copy(out, u)
		return append(out, stage)
	case []bson.M:
		out := make([]bson.M, len(u), len(u)+1)
		copy(out, u)
		return append(out, bson.M{"$set": bson.M{updatedAtField: storeNow}})
	case bson.A:
		out := make(bson.A, len(u), len(u)+1)
		copy(out, u)
		return append(out, stage)
	case []any:
		out := make([]any, len(u), len(u)+1)
		copy(out, u)
		return append(out, stage)
	}
	return update
}

func docHasKey(d bson.D, key string) bool {
	for _, e := range d {
		if e.Key == key {
			return true
		}
	}
	return false
}
