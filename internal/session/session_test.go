package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"marketlens/pkg/contracts/domain"
)

func TestSessionReplace(t *testing.T) {
	s := New()
	assert.Nil(t, s.Current())
	assert.True(t, s.ReplacedAt().IsZero())

	first := &domain.Dataset{ID: "first"}
	prev := s.Replace(first)
	assert.Nil(t, prev)
	assert.Same(t, first, s.Current())

	held := s.Current()
	second := &domain.Dataset{ID: "second"}
	prev = s.Replace(second)

	assert.Same(t, first, prev)
	assert.Same(t, second, s.Current())
	assert.Equal(t, "first", held.ID, "readers keep the dataset they loaded")
	assert.Equal(t, uint64(2), s.Version())
	assert.False(t, s.ReplacedAt().IsZero())

	assert.Same(t, second, s.Clear())
	assert.Nil(t, s.Current())
}

func TestSessionConcurrentReaders(t *testing.T) {
	s := New()
	s.Replace(&domain.Dataset{ID: "0"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ds := s.Current()
				assert.NotNil(t, ds)
			}
		}()
	}
	for i := 0; i < 50; i++ {
		s.Replace(&domain.Dataset{ID: "n"})
	}
	wg.Wait()
	assert.Equal(t, uint64(51), s.Version())
}
