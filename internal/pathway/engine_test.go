package pathway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/neurlyn/internal/model"
)

func tagged(value float64, tags ...string) model.Response {
	return model.Response{Value: value, ScaleMin: 1, ScaleMax: 5, Tags: tags}
}

func TestADHDActivatesOnThirdIntenseResponse(t *testing.T) {
	e := New(model.DefaultPolicy())
	s := NewState()

	assert.Empty(t, e.Observe(&s, tagged(4, "adhd_pathway")))
	assert.False(t, s.IsActive(model.PathwayADHD))
	assert.Empty(t, e.Observe(&s, tagged(5, "adhd_pathway")))
	assert.False(t, s.IsActive(model.PathwayADHD), "must not activate after the 2nd response")

	got := e.Observe(&s, tagged(4, "adhd_pathway"))
	require.Equal(t, []model.PathwayID{model.PathwayADHD}, got)
	assert.Equal(t, []model.PathwayID{model.PathwayADHD}, s.Active)
}

func TestLowIntensityDoesNotCount(t *testing.T) {
	e := New(model.DefaultPolicy())
	s := NewState()
	for i := 0; i < 5; i++ {
		e.Observe(&s, tagged(3, "attention"))
	}
	assert.Zero(t, s.Counts[model.PathwayADHD])
	assert.Empty(t, s.Active)
}

func TestActivationIsMonotonic(t *testing.T) {
	e := New(model.DefaultPolicy())
	s := NewState()
	for i := 0; i < 3; i++ {
		e.Observe(&s, tagged(5, "sensory"))
	}
	require.True(t, s.IsActive(model.PathwayAutism))

	for i := 0; i < 10; i++ {
		assert.Empty(t, e.Observe(&s, tagged(1, "sensory")))
		assert.True(t, s.IsActive(model.PathwayAutism))
	}
	// Further intense responses are no-ops for an active pathway.
	assert.Empty(t, e.Observe(&s, tagged(5, "sensory")))
	assert.Len(t, s.Active, 1)
}

func TestSimultaneousActivationUsesPriorityOrder(t *testing.T) {
	e := New(model.DefaultPolicy())
	s := NewState()
	var got []model.PathwayID
	for i := 0; i < 3; i++ {
		got = e.Observe(&s, tagged(5, "intellectual-intensity", "hypervigilance", "impulsivity"))
	}
	assert.Equal(t, []model.PathwayID{model.PathwayADHD, model.PathwayTrauma, model.PathwayGiftedness}, got)
	assert.Equal(t, got, s.Active)
}

func TestMalformedTagsFailOpen(t *testing.T) {
	e := New(model.DefaultPolicy())
	s := NewState()
	for i := 0; i < 5; i++ {
		e.Observe(&s, tagged(5, "", "   ", "no-such-tag"))
		e.Observe(&s, model.Response{Value: 5, ScaleMin: 1, ScaleMax: 5})
	}
	assert.Empty(t, s.Active)
}

func TestReverseKeyedItemsUseAgreement(t *testing.T) {
	e := New(model.DefaultPolicy())
	s := NewState()
	for i := 0; i < 3; i++ {
		r := tagged(1, "routine")
		r.Reverse = true
		e.Observe(&s, r)
	}
	assert.False(t, s.IsActive(model.PathwayAutism))

	for i := 0; i < 3; i++ {
		r := tagged(5, "routine")
		r.Reverse = true
		e.Observe(&s, r)
	}
	assert.True(t, s.IsActive(model.PathwayAutism))
}

func TestSeedAndReplay(t *testing.T) {
	p := model.DefaultPolicy()
	e := New(p)
	responses := []model.Response{
		tagged(5, "camouflaging"),
		tagged(4, "mimicry"),
	}
	s := e.Replay([]string{"masking", "unknown", "Masking"}, responses)
	assert.Equal(t, 3, s.Counts[model.PathwayMasking])
	assert.Equal(t, []model.PathwayID{model.PathwayMasking}, s.Active)

	without := e.Replay(nil, responses)
	assert.Empty(t, without.Active)
}
