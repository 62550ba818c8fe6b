package gain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestYieldOrdering(t *testing.T) {
	r := New(NewVirtualHost())

	var order []string
	r.BlockOn(func() {
		r.Spawn(func() {
			for i := 0; i < 2; i++ {
				order = append(order, "a")
				r.YieldNow()
			}
		})
		r.Spawn(func() {
			for i := 0; i < 2; i++ {
				order = append(order, "b")
				r.YieldNow()
			}
		})
		for i := 0; i < 4; i++ {
			r.YieldNow()
		}
	})

	assert.Equal(t, []string{"a", "b", "a", "b"}, order)
}

func TestSpawnRunsAfterCurrentStep(t *testing.T) {
	r := New(NewVirtualHost())

	var order []string
	r.BlockOn(func() {
		r.Spawn(func() { order = append(order, "spawned") })
		order = append(order, "top")
		r.YieldNow()
		order = append(order, "resumed")
	})

	assert.Equal(t, []string{"top", "spawned", "resumed"}, order)
}

func TestBlockOnRunsNestedSpawns(t *testing.T) {
	r := New(NewVirtualHost())

	ran := false
	r.BlockOn(func() {
		e := r.NewEvent()
		r.Spawn(func() {
			r.SpawnLocal(func() {
				ran = true
				e.Set()
			})
		})
		e.Wait()
	})

	assert.True(t, ran)
}

func TestEventWakesAllWaiters(t *testing.T) {
	r := New(NewVirtualHost())

	woken := 0
	r.BlockOn(func() {
		e := r.NewEvent()
		done := r.NewEvent()
		for i := 0; i < 3; i++ {
			r.Spawn(func() {
				e.Wait()
				woken++
				if woken == 3 {
					done.Set()
				}
			})
		}
		r.YieldNow()
		e.Set()
		done.Wait()
	})

	assert.Equal(t, 3, woken)
}

func TestEventSetBeforeWait(t *testing.T) {
	r := New(NewVirtualHost())

	r.BlockOn(func() {
		e := r.NewEvent()
		e.Set()
		e.Set() // idempotent
		e.Wait()
	})
}
