package usecase

import (
	"errors"
	"strings"

	"learnshell/internal/domain"
	"learnshell/internal/ports"
)

var errEmptyQuery = errors.New("spoken query is empty after normalization")

// queryFinalizer turns an aggregated transcript into a submitted query.
type queryFinalizer struct {
	rules  ports.QueryRules
	sink   ports.QuerySink
	events ports.EventSink
}

func newQueryFinalizer(rules ports.QueryRules, sink ports.QuerySink, events ports.EventSink) queryFinalizer {
	return queryFinalizer{rules: rules, sink: sink, events: events}
}

func (f queryFinalizer) Finalize(raw string) (domain.VoiceResult, domain.SessionStateReason, error) {
	query, err := f.rules.Apply(raw)
	if err != nil {
		f.events.SessionError(domain.ErrorCodeRules, err.Error())
		return domain.VoiceResult{}, domain.SessionReasonRulesFailed, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.VoiceResult{RawTranscript: raw}, domain.SessionReasonNoTranscript, errEmptyQuery
	}

	if err := f.sink.SubmitQuery(query); err != nil {
		f.events.SessionError(domain.ErrorCodeTranscription, err.Error())
		return domain.VoiceResult{}, domain.SessionReasonTranscriptionFailed, err
	}

	return domain.VoiceResult{RawTranscript: raw, Query: query}, domain.SessionReasonQueryReady, nil
}
