package service

import (
	"context"
	"errors"
	"receptionist/pkg/logger"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSaga_RollbackRunsNewestFirst(t *testing.T) {
	var order []string
	sg := newSaga(logger.Discard())
	for _, name := range []string{"first", "second", "third"} {
		sg.push(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	sg.rollback(context.Background())

	assert.Equal(t, []string{"third", "second", "first"}, order)
}

func TestSaga_FailureDoesNotStopRemainingSteps(t *testing.T) {
	var ran []string
	sg := newSaga(logger.Discard())
	sg.push("release", func(context.Context) error {
		ran = append(ran, "release")
		return nil
	})
	sg.push("cancel", func(context.Context) error {
		ran = append(ran, "cancel")
		return errors.New("cancel failed")
	})

	sg.rollback(context.Background())

	assert.Equal(t, []string{"cancel", "release"}, ran)
}

func TestSaga_CompleteSkipsRollback(t *testing.T) {
	called := false
	sg := newSaga(logger.Discard())
	sg.push("release", func(context.Context) error {
		called = true
		return nil
	})

	sg.complete()
	sg.rollback(context.Background())

	assert.False(t, called)
}
