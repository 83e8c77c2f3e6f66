package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liguemed/membership-core/internal/entity"
	"github.com/liguemed/membership-core/internal/usecase"
)

func TestResubmitAfterNeedsInfo(t *testing.T) {
	f := newFixture(t, nil)
	f.store.attempts["attempt-1"].Status = entity.AttemptStatusNeedsInfo
	note := "need a stamped receipt"
	f.store.attempts["attempt-1"].VerificationNote = &note

	out, err := f.resubmit.Execute(context.Background(), agent1, usecase.ResubmitPaymentInput{
		AttemptID: "attempt-1", Note: "receipt attached now",
	})

	require.NoError(t, err)
	assert.True(t, out.OK)

	attempt := f.store.attempts["attempt-1"]
	assert.Equal(t, entity.AttemptStatusPending, attempt.Status)
	assert.True(t, attempt.IsResubmission)
	// The reviewer note stays until the next decision replaces it.
	require.NotNil(t, attempt.VerificationNote)
	assert.Equal(t, "need a stamped receipt", *attempt.VerificationNote)

	require.Len(t, f.store.events, 1)
	event := f.store.events[0]
	assert.Equal(t, entity.ActionResubmitPayment, event.Action)
	assert.Equal(t, agent1ID, event.ActorID)
	assert.Equal(t, "needs_info", event.Metadata["previous_status"])
	assert.Equal(t, "pending", event.Metadata["new_status"])
	assert.Equal(t, "receipt attached now", event.Metadata["agent_note"])
}

func TestResubmitAfterRejection(t *testing.T) {
	f := newFixture(t, nil)
	f.store.attempts["attempt-1"].Status = entity.AttemptStatusRejected

	out, err := f.resubmit.Execute(context.Background(), agent1, usecase.ResubmitPaymentInput{
		AttemptID: "attempt-1",
	})

	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, entity.AttemptStatusPending, f.store.attempts["attempt-1"].Status)
}

func TestResubmitOnlyByAssignedAgent(t *testing.T) {
	f := newFixture(t, nil)
	f.store.attempts["attempt-1"].Status = entity.AttemptStatusNeedsInfo

	_, err := f.resubmit.Execute(context.Background(), reviewer, usecase.ResubmitPaymentInput{
		AttemptID: "attempt-1",
	})

	var forbidden *usecase.ForbiddenError
	require.ErrorAs(t, err, &forbidden)
	assert.Equal(t, entity.AttemptStatusNeedsInfo, f.store.attempts["attempt-1"].Status)
	assert.Empty(t, f.store.events)
}

func TestResubmitNotResubmittable(t *testing.T) {
	for _, status := range []entity.AttemptStatus{entity.AttemptStatusPending, entity.AttemptStatusSucceeded} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t, nil)
			f.store.attempts["attempt-1"].Status = status

			_, err := f.resubmit.Execute(context.Background(), agent1, usecase.ResubmitPaymentInput{
				AttemptID: "attempt-1",
			})

			var conflict *usecase.ConflictError
			require.ErrorAs(t, err, &conflict)
			assert.Equal(t, string(status), conflict.CurrentStatus)
		})
	}
}

func TestResubmitUnknownAttempt(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.resubmit.Execute(context.Background(), agent1, usecase.ResubmitPaymentInput{
		AttemptID: "nope",
	})

	var notFound *usecase.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestResubmitMissingAttemptID(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.resubmit.Execute(context.Background(), agent1, usecase.ResubmitPaymentInput{})

	var validation *usecase.ValidationError
	require.ErrorAs(t, err, &validation)
}
