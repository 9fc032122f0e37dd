package geocode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAll_Spacing(t *testing.T) {
	env := newTestEnv()
	addresses := []string{"A", "B", "C", "D", "E"}
	items := make([]Item, 0, len(addresses))
	for i, a := range addresses {
		env.provider.found(a+", France", "1", "1")
		items = append(items, Item{ID: a, Address: a, Label: "event " + string(rune('1'+i))})
	}

	var outcomes []Outcome
	err := ResolveAll(context.Background(), env.resolver, items, func(o Outcome) {
		outcomes = append(outcomes, o)
	})
	require.NoError(t, err)

	require.Len(t, outcomes, len(items))
	for i, o := range outcomes {
		assert.Equal(t, items[i].ID, o.Item.ID, "input order")
		assert.True(t, o.Found)
		assert.Equal(t, i+1, o.Completed)
		assert.Equal(t, len(items), o.Total)
	}
	assert.InDelta(t, 100.0, outcomes[len(outcomes)-1].Progress.PercentComplete, 1e-9)

	want := time.Duration(len(items)-1) * DefaultMinInterval
	assert.GreaterOrEqual(t, env.clock.Slept(), want)

	calls := env.provider.calls
	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i].at.Sub(calls[i-1].at), DefaultMinInterval)
	}
}

func TestResolveAll_FailingMiddleItem(t *testing.T) {
	env := newTestEnv()
	env.provider.found("a1, France", "1", "1")
	env.provider.errs["a2, France"] = errors.New("connection reset")
	env.provider.found("a3, France", "3", "3")

	items := []Item{{ID: "1", Address: "a1"}, {ID: "2", Address: "a2"}, {ID: "3", Address: "a3"}}
	var outcomes []Outcome
	err := ResolveAll(context.Background(), env.resolver, items, func(o Outcome) {
		outcomes = append(outcomes, o)
	})
	require.NoError(t, err)

	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[0].Found)
	assert.False(t, outcomes[1].Found)
	assert.Nil(t, outcomes[1].Coordinate)
	assert.True(t, outcomes[2].Found)
	require.NotNil(t, outcomes[2].Coordinate)
	assert.InDelta(t, 3.0, outcomes[2].Coordinate.Lat, 1e-9)
	assert.Equal(t, []string{"1", "2", "3"}, []string{outcomes[0].Item.ID, outcomes[1].Item.ID, outcomes[2].Item.ID})
}

func TestResolveAll_PreResolvedItems(t *testing.T) {
	env := newTestEnv()
	items := []Item{
		{ID: "1", Address: "somewhere", Coordinate: &Coordinate{Lat: 48.85, Lng: 2.35}},
		{ID: "2", Address: ""},
	}

	var outcomes []Outcome
	require.NoError(t, ResolveAll(context.Background(), env.resolver, items, func(o Outcome) {
		outcomes = append(outcomes, o)
	}))

	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].Found)
	assert.Equal(t, &Coordinate{Lat: 48.85, Lng: 2.35}, outcomes[0].Coordinate)
	assert.False(t, outcomes[1].Found)
	assert.Zero(t, env.provider.callCount())
}

func TestResolveAll_Cancelled(t *testing.T) {
	env := newTestEnv()
	env.provider.found("A, France", "1", "1")
	env.provider.found("B, France", "2", "2")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	err := ResolveAll(ctx, env.resolver, []Item{{Address: "A"}, {Address: "B"}}, func(Outcome) {
		calls++
		cancel()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, env.provider.callCount())
}

func TestResolveAll_Empty(t *testing.T) {
	env := newTestEnv()
	called := false
	require.NoError(t, ResolveAll(context.Background(), env.resolver, nil, func(Outcome) { called = true }))
	assert.False(t, called)
}

func TestResolveAll_NilCallback(t *testing.T) {
	env := newTestEnv()
	env.provider.found("A, France", "1", "1")
	require.NoError(t, ResolveAll(context.Background(), env.resolver, []Item{{Address: "A"}}, nil))
	assert.Equal(t, 1, env.provider.callCount())
}
