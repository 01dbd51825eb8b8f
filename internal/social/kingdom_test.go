package social

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelationsAreSymmetricAndClamped(t *testing.T) {
	a := NewKingdom(1, "A", "A")
	b := NewKingdom(2, "B", "B")

	SetRelation(a, b, 40)
	assert.Equal(t, 40.0, a.Relation(2))
	assert.Equal(t, 40.0, b.Relation(1))

	AdjustRelation(a, b, 90)
	assert.Equal(t, MaxRelation, a.Relation(2))
	assert.Equal(t, MaxRelation, b.Relation(1))
}

func TestPacts(t *testing.T) {
	a := NewKingdom(1, "A", "A")
	b := NewKingdom(2, "B", "B")

	SetPact(a, b, Wars, true)
	assert.True(t, a.AtWarWith(2))
	assert.True(t, b.AtWarWith(1))

	SetPact(a, b, Wars, false)
	assert.False(t, a.AtWarWith(2))
	assert.False(t, b.AtWarWith(1))
}

func TestDriftRelations(t *testing.T) {
	a := NewKingdom(1, "A", "A")
	b := NewKingdom(2, "B", "B")
	SetRelation(a, b, -50)

	a.DriftRelations(0.1)
	assert.InDelta(t, -45, a.Relation(2), 1e-9)
	assert.Equal(t, -50.0, b.Relation(1), "drift is applied per kingdom")
}

func TestSeedKingdoms(t *testing.T) {
	ks := SeedKingdoms()
	assert.Len(t, ks, 4)
	for _, k := range ks {
		assert.Len(t, k.Others(), 3, k.Name)
	}
}
