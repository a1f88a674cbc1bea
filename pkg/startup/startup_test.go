package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/logging"
)

func newTestStartup(attempts int) *Startup {
	s := NewStartup(logging.Discard(), attempts)
	s.unit = time.Millisecond
	return s
}

func TestStartup_Start(t *testing.T) {
	t.Run("should start dependencies after what they depend on", func(t *testing.T) {
		var order []string
		record := func(name string) func(context.Context) error {
			return func(context.Context) error {
				order = append(order, name)
				return nil
			}
		}

		s := newTestStartup(1)
		s.AddDependency(Func{Name: "api", Needs: []string{"database", "cache"}, StartFn: record("api")})
		s.AddDependency(Func{Name: "cache", StartFn: record("cache")})
		s.AddDependency(Func{Name: "database", StartFn: record("database")})

		require.NoError(t, s.Start(context.Background()))
		assert.Equal(t, []string{"database", "cache", "api"}, order)
		assert.Equal(t, StatusStarted, s.Status("api"))
	})

	t.Run("should retry until a dependency comes up", func(t *testing.T) {
		calls := 0
		s := newTestStartup(3)
		s.AddDependency(Func{Name: "database", StartFn: func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		}})

		require.NoError(t, s.Start(context.Background()))
		assert.Equal(t, 3, calls)
	})

	t.Run("should give up after the last attempt", func(t *testing.T) {
		s := newTestStartup(2)
		s.AddDependency(Func{Name: "database", StartFn: func(context.Context) error {
			return errors.New("connection refused")
		}})

		err := s.Start(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "after 2 attempts")
		assert.Equal(t, StatusFailed, s.Status("database"))
	})

	t.Run("should report unknown dependencies", func(t *testing.T) {
		s := newTestStartup(1)
		s.AddDependency(Func{Name: "api", Needs: []string{"queue"}})

		err := s.Start(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown startup dependency 'queue'")
	})
}

func TestStartup_Stop(t *testing.T) {
	var stopped []string
	stop := func(name string, err error) func(context.Context) error {
		return func(context.Context) error {
			stopped = append(stopped, name)
			return err
		}
	}

	s := newTestStartup(1)
	s.AddDependency(Func{Name: "database", StopFn: stop("database", nil)})
	s.AddDependency(Func{Name: "kafka", Needs: []string{"database"}, StopFn: stop("kafka", errors.New("flush failed"))})
	require.NoError(t, s.Start(context.Background()))

	err := s.Stop(context.Background())

	assert.EqualError(t, err, "flush failed")
	assert.Equal(t, []string{"kafka", "database"}, stopped)
	assert.Equal(t, StatusStopped, s.Status("database"))
}
