package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/docuvault/docuvault/internal/document"
)

// vehicle is the polymorphic base type used across the repository tests; car
// and truck are its concrete shapes, discriminated by the "type" field.
type vehicle struct {
	document.Base `bson:",inline"`
	Type          string `bson:"type"`
	Name          string `bson:"name"`
	Wheels        int    `bson:"wheels"`
}

func (*vehicle) CollectionName() string { return "vehicles" }

type car struct {
	vehicle `bson:",inline"`
	Doors   int `bson:"doors"`
}

type truck struct {
	vehicle `bson:",inline"`
	Axles   int `bson:"axles"`
}

func newCar() document.Model   { return &car{} }
func newTruck() document.Model { return &truck{} }

func vehicleRegistry(abstract bool) *Registry[document.Model] {
	reg := &Registry[document.Model]{
		Property: "type",
		Abstract: abstract,
		Factories: map[string]func() document.Model{
			"car":   newCar,
			"truck": newTruck,
		},
	}
	if !abstract {
		reg.Base = func() document.Model { return &vehicle{} }
	}
	return reg
}

func rawDoc(t *testing.T, doc any) bson.Raw {
	t.Helper()
	b, err := bson.Marshal(doc)
	require.NoError(t, err)
	return bson.Raw(b)
}

func TestRegistryResolveMatch(t *testing.T) {
	reg := vehicleRegistry(true)

	raw := rawDoc(t, bson.M{"type": "car", "name": "beetle"})
	f, err := reg.Resolve(raw)
	require.NoError(t, err)
	require.IsType(t, &car{}, f())

	// plain map shape resolves the same way
	f, err = reg.Resolve(map[string]any{"type": "truck"})
	require.NoError(t, err)
	require.IsType(t, &truck{}, f())
}

func TestRegistryResolveIsIdempotent(t *testing.T) {
	reg := vehicleRegistry(true)
	raw := rawDoc(t, bson.M{"type": "car"})

	f1, err := reg.Resolve(raw)
	require.NoError(t, err)
	f2, err := reg.Resolve(raw)
	require.NoError(t, err)
	require.IsType(t, f1(), f2())
}

func TestRegistryAbstractUnmatchedTagFails(t *testing.T) {
	reg := vehicleRegistry(true)

	_, err := reg.Resolve(rawDoc(t, bson.M{"type": "hovercraft"}))
	require.ErrorIs(t, err, ErrUnresolvable)

	// missing tag is just as unresolvable
	_, err = reg.Resolve(rawDoc(t, bson.M{"name": "anonymous"}))
	require.ErrorIs(t, err, ErrUnresolvable)
}

func TestRegistryConcreteUnmatchedTagFallsBack(t *testing.T) {
	reg := vehicleRegistry(false)

	f, err := reg.Resolve(rawDoc(t, bson.M{"type": "hovercraft"}))
	require.NoError(t, err)
	require.IsType(t, &vehicle{}, f())

	f, err = reg.Resolve(bson.M{"name": "no tag at all"})
	require.NoError(t, err)
	require.IsType(t, &vehicle{}, f())
}
