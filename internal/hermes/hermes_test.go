package hermes

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingClient struct {
	subjects []string
	err      error
}

func (r *recordingClient) Publish(subject string, _ interface{}) error {
	r.subjects = append(r.subjects, subject)
	return r.err
}
func (r *recordingClient) Subscribe(_ string, _ func(string, []byte)) error { return nil }
func (r *recordingClient) Close()                                           {}

func TestSubjects(t *testing.T) {
	assert.Equal(t, "collector.case.42.created", SubjectCaseCreated(42))
	assert.Equal(t, "collector.case.7.status", SubjectCaseStatus(7))
	assert.Equal(t, "collector.case.ingested", SubjectCasesIngested)
}

func TestPublisherForwards(t *testing.T) {
	c := &recordingClient{}
	p := NewPublisher(c, slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.Publish(SubjectCollectorStats, StatsEvent{})
	assert.Equal(t, []string{SubjectCollectorStats}, c.subjects)
}

func TestPublisherSwallowsErrors(t *testing.T) {
	c := &recordingClient{err: errors.New("no responders")}
	p := NewPublisher(c, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NotPanics(t, func() { p.Publish(SubjectCasesIngested, CasesIngestedEvent{}) })
}

func TestNilPublisherIsNoop(t *testing.T) {
	var p *Publisher
	assert.NotPanics(t, func() { p.Publish(SubjectCasesIngested, nil) })

	p = NewPublisher(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NotPanics(t, func() { p.Publish(SubjectCasesIngested, nil) })
}
