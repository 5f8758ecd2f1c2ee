package ureport

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jaxxstorm/ureport/internal/httpclient"
	"github.com/jaxxstorm/ureport/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attachTransport(status int, body string) *httpclient.MockTransport {
	return &httpclient.MockTransport{Responder: func(req httpclient.Request) httpclient.Result {
		return httpclient.Result{OK: true, StatusCode: status, Body: []byte(body)}
	}}
}

func TestAttachSuccess(t *testing.T) {
	cfg := newConfig(t)
	transport := attachTransport(202, `{"result":"true"}`)
	ok, err := New(cfg, Options{Transport: transport}).AttachBug(context.Background(), "abcd1234", 1234567)
	require.NoError(t, err)
	assert.True(t, ok)

	req := transport.Requests[0]
	assert.Equal(t, "https://faf.example.org/faf/reports/attach/", req.URL)
	var body map[string]string
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, map[string]string{"bthash": "abcd1234", "type": "RHBZ", "data": "1234567"}, body)
}

func TestAttachRequiresExactTrue(t *testing.T) {
	for _, value := range []string{`"false"`, `"True"`, `"yes"`, `1`} {
		cfg := newConfig(t)
		ok, err := New(cfg, Options{Transport: attachTransport(202, `{"result":`+value+`}`)}).AttachEmail(context.Background(), "h", "a@b.c")
		assert.False(t, ok, value)
		var rerr *AttachRejectedError
		assert.True(t, errors.As(err, &rerr), value)
	}
}

func TestAttachErrorSurfacesServerText(t *testing.T) {
	cfg := newConfig(t)
	ok, err := New(cfg, Options{Transport: attachTransport(400, `{"error":"unknown bthash"}`)}).AttachComment(context.Background(), "h", "hello")
	assert.False(t, ok)
	var serr *ServerError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "unknown bthash", serr.Text)
	assert.Contains(t, err.Error(), "unknown bthash")
}

func TestAttachTransportFailure(t *testing.T) {
	cfg := newConfig(t)
	transport := &httpclient.MockTransport{Responder: func(req httpclient.Request) httpclient.Result {
		return httpclient.Result{OK: true, StatusCode: 503}
	}}
	ok, err := New(cfg, Options{Transport: transport}).Attach(context.Background(), "h", "comment", "x")
	assert.False(t, ok)
	var serr *StatusError
	assert.True(t, errors.As(err, &serr))
}

type memoryRecorder struct {
	lines    []string
	solution string
}

func (m *memoryRecorder) AddReportedTo(line string) error {
	m.lines = append(m.lines, line)
	return nil
}

func (m *memoryRecorder) SaveSolution(text string) error {
	m.solution = text
	return nil
}

func TestRecord(t *testing.T) {
	rec := &memoryRecorder{}
	resp := &model.ResultResponse{
		Value:      "true",
		BTHash:     "abcd1234",
		ReportedTo: []string{"Bugzilla: URL=https://bz/1"},
		Solution:   "update",
	}
	require.NoError(t, Record(rec, resp, "https://faf/faf", "Fedora", true))
	assert.Equal(t, []string{
		"uReport: BTHASH=abcd1234",
		"ABRT Server: URL=https://faf/faf/reports/bthash/abcd1234",
		"Bugzilla: URL=https://bz/1 WORKFLOW=Fedora",
	}, rec.lines)
	assert.Equal(t, "update", rec.solution)
}

func TestRecordWithoutBTHash(t *testing.T) {
	rec := &memoryRecorder{}
	require.NoError(t, Record(rec, &model.ResultResponse{Value: "false"}, "https://faf", "", false))
	assert.Empty(t, rec.lines)
	assert.Empty(t, rec.solution)
}

func TestRecordEmptyWorkflowStillTags(t *testing.T) {
	rec := &memoryRecorder{}
	resp := &model.ResultResponse{Value: "false", ReportedTo: []string{"Bugzilla: URL=https://bz/1"}}
	require.NoError(t, Record(rec, resp, "https://faf", "", true))
	assert.Equal(t, []string{"Bugzilla: URL=https://bz/1 WORKFLOW="}, rec.lines)

	rec = &memoryRecorder{}
	require.NoError(t, Record(rec, resp, "https://faf", "", false))
	assert.Equal(t, []string{"Bugzilla: URL=https://bz/1"}, rec.lines)
}
