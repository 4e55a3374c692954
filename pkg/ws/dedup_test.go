package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedup_MessageOnEachGenerationDeliveredOnce(t *testing.T) {
	d := newDedup()

	assert.True(t, d.admit("M", 1), "first sighting delivers")
	assert.False(t, d.admit("M", -1), "replay on the new generation is suppressed")
	assert.Empty(t, d.counts, "cancelled entries are removed")
}

func TestDedup_SameGenerationDuplicateDeliveredTwice(t *testing.T) {
	d := newDedup()

	assert.True(t, d.admit("M", 1))
	assert.True(t, d.admit("M", 1), "a genuine server duplicate is delivered again")
}

func TestDedup_OrderOfGenerationsIrrelevant(t *testing.T) {
	d := newDedup()

	assert.True(t, d.admit("M", -1))
	assert.False(t, d.admit("M", 1))
}

func TestDedup_DistinctMessagesIndependent(t *testing.T) {
	d := newDedup()

	assert.True(t, d.admit("A", 1))
	assert.True(t, d.admit("B", -1))
	assert.False(t, d.admit("A", -1))
	assert.False(t, d.admit("B", 1))
}

func TestDedup_ClearForgetsEverything(t *testing.T) {
	d := newDedup()

	assert.True(t, d.admit("M", 1))
	d.clear()
	assert.True(t, d.admit("M", -1), "after clear the replay counts as new")
}
