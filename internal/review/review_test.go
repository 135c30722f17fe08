package review

import (
	"testing"

	"nrm-schedules/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReview_CompleteRequiresNoPending(t *testing.T) {
	r := New(map[string]string{"qty": "Quantity", "desc": "Description"})
	assert.Equal(t, []string{"desc", "qty"}, r.PendingHeaders())

	_, err := r.Complete()
	assert.ErrorIs(t, err, ErrPending)

	require.NoError(t, r.Accept("qty"))
	_, err = r.Complete()
	assert.ErrorIs(t, err, ErrPending)

	require.NoError(t, r.Reject("desc"))
	mapping, err := r.Complete()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"qty": "Quantity", "desc": "desc"}, mapping)
}

func TestReview_DecisionCanBeChangedBackToPending(t *testing.T) {
	r := New(map[string]string{"qty": "Quantity"})
	require.NoError(t, r.Accept("qty"))
	require.NoError(t, r.Set("qty", Pending))

	_, err := r.Complete()
	assert.ErrorIs(t, err, ErrPending)
}

func TestReview_UnknownHeaderAndDecision(t *testing.T) {
	r := New(map[string]string{"qty": "Quantity"})
	assert.ErrorIs(t, r.Accept("nope"), ErrUnknownHeader)
	assert.ErrorIs(t, r.Set("qty", Decision("maybe")), ErrInvalidDecision)
}

func TestReview_EmptyProposalCompletesImmediately(t *testing.T) {
	mapping, err := New(nil).Complete()
	require.NoError(t, err)
	assert.Empty(t, mapping)
}

func TestApply(t *testing.T) {
	headers := []string{"desc", "qty", "unit"}
	rows := []models.Row{{"desc": "Wall", "qty": "3", "unit": "m2"}}

	gotHeaders, gotRows := Apply(headers, rows, map[string]string{"desc": "Description", "qty": "Quantity", "unit": "unit"})

	assert.Equal(t, []string{"Description", "Quantity", "unit"}, gotHeaders)
	assert.Equal(t, []models.Row{{"Description": "Wall", "Quantity": "3", "unit": "m2"}}, gotRows)
}

func TestApply_CollidingNames(t *testing.T) {
	headers := []string{"a", "b"}
	rows := []models.Row{{"a": "1", "b": "2"}}

	gotHeaders, gotRows := Apply(headers, rows, map[string]string{"a": "X", "b": "X"})

	assert.Equal(t, []string{"X"}, gotHeaders)
	assert.Equal(t, "2", gotRows[0]["X"])
}
