package job

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSet(t *testing.T) {
	t.Run("keeps declaration order", func(t *testing.T) {
		s, err := NewSet(&Job{Name: "c"}, &Job{Name: "a"}, &Job{Name: "b"})
		require.NoError(t, err)

		var names []string
		for _, j := range s.Jobs() {
			names = append(names, j.Name)
		}
		assert.Equal(t, []string{"c", "a", "b"}, names)
		assert.Equal(t, 3, s.Len())
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		_, err := NewSet(&Job{Name: "a"}, &Job{Name: "a"})
		assert.ErrorIs(t, err, ErrDuplicateJob)
	})

	t.Run("rejects unnamed jobs", func(t *testing.T) {
		_, err := NewSet(&Job{Name: "a"}, &Job{})
		assert.ErrorIs(t, err, ErrUnnamedJob)
	})
}

func TestSet_Get(t *testing.T) {
	a := &Job{Name: "a"}
	s, err := NewSet(a)
	require.NoError(t, err)

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestSet_Admissible(t *testing.T) {
	// --- Arrange ---
	a := &Job{Name: "a"}
	b := &Job{Name: "b"}
	c := &Job{Name: "c", Needs: []string{"a", "b"}}
	dangling := &Job{Name: "d", Needs: []string{"ghost"}}
	s, err := NewSet(a, b, c, dangling)
	require.NoError(t, err)

	// --- Act & Assert ---
	assert.True(t, s.Admissible(a), "a root job is admissible immediately")
	assert.False(t, s.Admissible(c))
	assert.False(t, s.Admissible(dangling), "an unknown need never becomes Completed")

	require.NoError(t, a.Start(nil, t0))
	assert.False(t, s.Admissible(a), "only Pending jobs are admissible")
	require.NoError(t, a.Complete(t0, nil))
	assert.False(t, s.Admissible(c), "c still waits for b")

	require.NoError(t, b.Start(nil, t0))
	assert.False(t, s.Admissible(c), "a Running need is not enough")
	require.NoError(t, b.Complete(t0, nil))
	assert.True(t, s.Admissible(c))
}

func TestSet_FailedNeedBlocksForever(t *testing.T) {
	a := &Job{Name: "a"}
	b := &Job{Name: "b", Needs: []string{"a"}}
	s, err := NewSet(a, b)
	require.NoError(t, err)

	require.NoError(t, a.Start(nil, t0))
	require.NoError(t, a.Fail(t0, nil, errors.New("x")))

	assert.False(t, s.Admissible(b))
}

func TestSet_Count(t *testing.T) {
	a := &Job{Name: "a"}
	b := &Job{Name: "b"}
	s, err := NewSet(a, b, &Job{Name: "c"})
	require.NoError(t, err)
	require.NoError(t, a.Start(nil, t0))
	require.NoError(t, b.Start(nil, t0))
	require.NoError(t, b.Complete(t0, nil))

	counts := s.Count()
	assert.Equal(t, 1, counts[Pending])
	assert.Equal(t, 1, counts[Running])
	assert.Equal(t, 1, counts[Completed])
	assert.Equal(t, 0, counts[Failed])
}
