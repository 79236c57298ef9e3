package mailer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

type recordingSender struct {
	messages []*mail.Msg
	err      error
}

func (s *recordingSender) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	s.messages = append(s.messages, messages...)
	return s.err
}

func doneJob() *domain.ItineraryJob {
	return &domain.ItineraryJob{
		ID:     "job-1",
		Status: domain.JobStatusDone,
		Request: domain.ItineraryRequest{
			StartDate: "2024-01-01",
			EndDate:   "2024-01-03",
		},
		Result: &domain.RunResult{
			BestFitness: 1234.5,
			Itinerary: map[string]domain.DayPlan{
				"2024-01-02": {Places: []domain.PlaceVisit{{Name: "Museu"}, {Name: "Castelo"}}},
				"2024-01-01": {Places: []domain.PlaceVisit{{Name: "Torre"}}},
			},
		},
	}
}

func TestMailDataOrdersDays(t *testing.T) {
	data, err := MailData(doneJob())
	require.NoError(t, err)

	require.Len(t, data.Days, 3)
	assert.Equal(t, "2024-01-01", data.Days[0].Date)
	assert.Equal(t, []string{"Torre"}, data.Days[0].Places)
	assert.Equal(t, []string{"Museu", "Castelo"}, data.Days[1].Places)
	assert.Equal(t, "2024-01-03", data.Days[2].Date)
	assert.Empty(t, data.Days[2].Places)
}

func TestMailDataWithoutResult(t *testing.T) {
	job := doneJob()
	job.Result = nil

	_, err := MailData(job)
	assert.Error(t, err)
}

func TestTemplateRenders(t *testing.T) {
	m, err := New(&recordingSender{}, "planner@example.com")
	require.NoError(t, err)

	data, err := MailData(doneJob())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.tmpl.Execute(&buf, data))
	body := buf.String()
	assert.Contains(t, body, "job-1")
	assert.Contains(t, body, "1234.50")
	assert.Contains(t, body, "<li>Castelo</li>")
	assert.Contains(t, body, "自由活动")
}

func TestNotifyItineraryReady(t *testing.T) {
	sender := &recordingSender{}
	m, err := New(sender, "planner@example.com")
	require.NoError(t, err)

	require.NoError(t, m.NotifyItineraryReady(context.Background(), "someone@example.com", doneJob()))
	require.Len(t, sender.messages, 1)

	recipients, err := sender.messages[0].GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"someone@example.com"}, recipients)
	assert.Equal(t, []string{itineraryReadySubject}, sender.messages[0].GetGenHeader(mail.HeaderSubject))
}

func TestNotifyItineraryReadyErrors(t *testing.T) {
	m, err := New(&recordingSender{err: errors.New("smtp down")}, "planner@example.com")
	require.NoError(t, err)
	assert.Error(t, m.NotifyItineraryReady(context.Background(), "someone@example.com", doneJob()))

	assert.Error(t, m.NotifyItineraryReady(context.Background(), "not an address", doneJob()))
}
