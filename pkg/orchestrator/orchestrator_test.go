package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/go-go-golems/invochat/pkg/messages"
	"github.com/go-go-golems/invochat/pkg/notify"
	"github.com/go-go-golems/invochat/pkg/session"
	"github.com/go-go-golems/invochat/pkg/settings"
	"github.com/go-go-golems/invochat/pkg/transport"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu sync.Mutex

	turns   []transport.TurnRequest
	uploads []string
	resets  []string

	// responses are consumed in order; the last one is repeated
	responses []*transport.TurnResponse
	turnErr   error
	onSend    func(req transport.TurnRequest)

	extraction *transport.ExtractionResult
	uploadErr  error
	resetErr   error
}

func (f *fakeClient) SendTurn(_ context.Context, req transport.TurnRequest) (*transport.TurnResponse, error) {
	f.mu.Lock()
	f.turns = append(f.turns, req)
	onSend := f.onSend
	err := f.turnErr
	var resp *transport.TurnResponse
	if len(f.responses) > 0 {
		resp = f.responses[0]
		if len(f.responses) > 1 {
			f.responses = f.responses[1:]
		}
	}
	f.mu.Unlock()

	if onSend != nil {
		onSend(req)
	}
	if err != nil {
		return nil, err
	}
	if resp == nil {
		resp = &transport.TurnResponse{Action: "general_response", Message: strPtr("ok")}
	}
	return resp, nil
}

func (f *fakeClient) UploadForExtraction(_ context.Context, file transport.File, _ string, _ session.Context) (*transport.ExtractionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, file.Name)
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	if f.extraction == nil {
		return &transport.ExtractionResult{}, nil
	}
	return f.extraction, nil
}

func (f *fakeClient) ResetSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, sessionID)
	return f.resetErr
}

func (f *fakeClient) turnCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.turns)
}

func strPtr(s string) *string {
	return &s
}

// decodeResponse builds a response the way the HTTP client decodes it.
func decodeResponse(t *testing.T, body string) *transport.TurnResponse {
	t.Helper()
	var r transport.TurnResponse
	require.NoError(t, json.Unmarshal([]byte(body), &r))
	return &r
}

var testNow = time.Date(2024, 3, 1, 14, 5, 0, 0, time.UTC)

func newTestOrchestrator(t *testing.T, client transport.Client, options ...Option) *Orchestrator {
	t.Helper()
	s, err := settings.NewDefaultSettings()
	require.NoError(t, err)
	options = append([]Option{WithClock(func() time.Time { return testNow })}, options...)
	return New(client, s, options...)
}

func texts(msgs []messages.Message) []string {
	ret := make([]string, len(msgs))
	for i, m := range msgs {
		ret[i] = m.Text
	}
	return ret
}

const greetingEN = "Hello! I can help you create customers and invoices. Pick an action below or upload a photo of a document to get started."

func TestNew_InitialState(t *testing.T) {
	o := newTestOrchestrator(t, &fakeClient{}, WithStoreOptions(session.WithSessionID("s-1")))

	assert.Equal(t, "s-1", o.SessionID())
	assert.False(t, o.Busy())
	assert.Equal(t, StageHidden, o.InputStage())
	assert.Equal(t, session.Context{"language": "en"}, o.Context())
	msgs := o.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsBot)
	assert.Equal(t, greetingEN, msgs[0].Text)
	assert.Equal(t, "14:05", msgs[0].Timestamp)
}

// Scenario A
func TestSubmitText_BootstrapRevealsInput(t *testing.T) {
	fc := &fakeClient{responses: []*transport.TurnResponse{
		{Action: "ask_question", Message: strPtr("What is the customer phone?")},
	}}
	o := newTestOrchestrator(t, fc)

	require.NoError(t, o.SubmitText(context.Background(), "  Create Invoice "))

	assert.Equal(t, StageVisible, o.InputStage())
	require.Len(t, fc.turns, 1)
	assert.Equal(t, "  Create Invoice ", fc.turns[0].Text)
	assert.Equal(t, o.SessionID(), fc.turns[0].SessionID)
	assert.Equal(t, session.Context{"language": "en"}, fc.turns[0].Context)

	msgs := o.Messages()
	require.Len(t, msgs, 3)
	assert.False(t, msgs[1].IsBot)
	assert.True(t, msgs[2].IsBot)
	assert.Equal(t, "What is the customer phone?", msgs[2].Text)
	assert.Equal(t, session.Context{"language": "en"}, o.Context())
	assert.False(t, o.Busy())
}

func TestSubmitText_NonBootstrapKeepsInputHidden(t *testing.T) {
	o := newTestOrchestrator(t, &fakeClient{})
	require.NoError(t, o.SubmitText(context.Background(), "hello"))
	assert.Equal(t, StageHidden, o.InputStage())
}

func TestSubmitText_BootstrapRevealsEvenOnFailure(t *testing.T) {
	fc := &fakeClient{turnErr: &transport.Error{Op: "send turn", StatusCode: 502, Body: "bad gateway"}}
	o := newTestOrchestrator(t, fc)
	require.NoError(t, o.SubmitText(context.Background(), "list items"))
	assert.Equal(t, StageVisible, o.InputStage())
}

func TestSubmitText_ContextFlow(t *testing.T) {
	fc := &fakeClient{responses: []*transport.TurnResponse{
		{Action: "ask_question", Message: strPtr("Name?"), Context: session.Context{"status": "collecting", "language": "kn"}},
		{Action: "ask_question", Message: strPtr("Phone?")},
		{Action: "customer_created", ContactID: "C-1"},
	}}
	o := newTestOrchestrator(t, fc)
	ctx := context.Background()

	require.NoError(t, o.SubmitText(ctx, "create customer"))
	assert.Equal(t, session.Context{"language": "en", "status": "collecting"}, o.Context())

	require.NoError(t, o.SubmitText(ctx, "Asha"))
	assert.Equal(t, session.Context{"language": "en", "status": "collecting"}, o.Context())
	assert.Equal(t, session.Context{"language": "en", "status": "collecting"}, fc.turns[1].Context)

	require.NoError(t, o.SubmitText(ctx, "9876543210"))
	assert.Equal(t, session.Context{"language": "en"}, o.Context())
	assert.Equal(t, "Customer created: ID C-1", o.Messages()[6].Text)
}

// Scenario B
func TestSubmitText_InvoiceCreated(t *testing.T) {
	var got []notify.Notification
	fc := &fakeClient{responses: []*transport.TurnResponse{
		{Action: "request_invoice_info", Message: strPtr("Which item?"), Context: session.Context{"status": "items"}},
		{Action: "invoice_created", Message: strPtr("Done"), InvoiceID: "INV-1", PDFURL: "https://x/1.pdf"},
	}}
	o := newTestOrchestrator(t, fc,
		WithStoreOptions(session.WithSessionID("s-2")),
		WithNotifier(notify.NotifierFunc(func(_ context.Context, n notify.Notification) error {
			got = append(got, n)
			return nil
		})))
	ctx := context.Background()

	require.NoError(t, o.SubmitText(ctx, "create invoice"))
	require.NoError(t, o.SubmitText(ctx, "rice"))

	msgs := o.Messages()
	require.Len(t, msgs, 5)
	last := msgs[4]
	assert.Equal(t, "Done", last.Text)
	dl, ok := last.Download()
	require.True(t, ok)
	assert.Equal(t, "invoice_INV-1.pdf", dl.Filename)
	assert.Equal(t, "https://x/1.pdf", dl.URL)

	fr, ok := o.LastDownload()
	require.True(t, ok)
	assert.Equal(t, dl, fr)

	require.Len(t, got, 1)
	assert.Equal(t, notify.KindSuccess, got[0].Kind)
	assert.Equal(t, "INV-1", got[0].InvoiceID)
	assert.Equal(t, "s-2", got[0].SessionID)
	assert.Equal(t, testNow, got[0].CreatedAt)

	assert.Equal(t, session.Context{"language": "en"}, o.Context())
}

func TestSubmitText_BackendErrorFollowsContextPolicy(t *testing.T) {
	var got []notify.Notification
	fc := &fakeClient{responses: []*transport.TurnResponse{
		{Action: "ask_question", Message: strPtr("Name?"), Context: session.Context{"status": "collecting"}},
		{Action: "error", Context: session.Context{"status": "retry"}},
	}}
	o := newTestOrchestrator(t, fc, WithNotifier(notify.NotifierFunc(func(_ context.Context, n notify.Notification) error {
		got = append(got, n)
		return nil
	})))
	ctx := context.Background()

	require.NoError(t, o.SubmitText(ctx, "create customer"))
	require.NoError(t, o.SubmitText(ctx, "Asha"))

	assert.Equal(t, "Error: unknown", o.Messages()[4].Text)
	assert.Equal(t, session.Context{"language": "en", "status": "retry"}, o.Context())
	require.Len(t, got, 1)
	assert.Equal(t, notify.KindFailure, got[0].Kind)
}

func TestSubmitText_NotifierFailureIsNotFatal(t *testing.T) {
	fc := &fakeClient{responses: []*transport.TurnResponse{{Action: "customer_created", ContactID: "C-1"}}}
	o := newTestOrchestrator(t, fc, WithNotifier(notify.NotifierFunc(func(context.Context, notify.Notification) error {
		return errors.New("bus closed")
	})))
	require.NoError(t, o.SubmitText(context.Background(), "yes"))
	assert.Len(t, o.Messages(), 3)
}

// Scenario E
func TestSubmitText_TransportFailure(t *testing.T) {
	fc := &fakeClient{responses: []*transport.TurnResponse{
		{Action: "ask_question", Message: strPtr("Name?"), Context: session.Context{"status": "collecting"}},
	}}
	o := newTestOrchestrator(t, fc)
	ctx := context.Background()

	require.NoError(t, o.SubmitText(ctx, "create customer"))
	require.Equal(t, "collecting", o.Context()["status"])

	fc.turnErr = &transport.Error{Op: "send turn", Err: errors.New("connection refused")}
	require.NoError(t, o.SubmitText(ctx, "Asha"))

	msgs := o.Messages()
	require.Len(t, msgs, 5)
	assert.False(t, msgs[3].IsBot)
	assert.True(t, msgs[4].IsBot)
	assert.Equal(t, "Sorry, something went wrong while talking to the server: connection refused", msgs[4].Text)
	assert.Equal(t, session.Context{"language": "en"}, o.Context())
	assert.False(t, o.Busy())
}

func TestSubmitText_HTTPStatusDetail(t *testing.T) {
	fc := &fakeClient{turnErr: &transport.Error{Op: "send turn", StatusCode: 500, Body: "boom"}}
	o := newTestOrchestrator(t, fc)
	require.NoError(t, o.SubmitText(context.Background(), "hi"))
	assert.Equal(t, "Sorry, something went wrong while talking to the server: 500 boom", o.Messages()[2].Text)
}

func TestSubmitText_NonStringActionIsDiagnosed(t *testing.T) {
	fc := &fakeClient{responses: []*transport.TurnResponse{
		{Action: "ask_question", Message: strPtr("Name?"), Context: session.Context{"status": "collecting"}},
		decodeResponse(t, `{"action": 3, "message": "x"}`),
	}}
	o := newTestOrchestrator(t, fc)
	ctx := context.Background()

	require.NoError(t, o.SubmitText(ctx, "create customer"))
	require.NoError(t, o.SubmitText(ctx, "Asha"))

	msgs := o.Messages()
	require.Len(t, msgs, 5)
	assert.True(t, msgs[4].IsBot)
	assert.Equal(t, "Unrecognized response (action: 3): x", msgs[4].Text)
	assert.Equal(t, session.Context{"language": "en"}, o.Context())
}

func TestSubmitText_NonObjectContextIsAbsent(t *testing.T) {
	for _, raw := range []string{`"oops"`, `[]`, `42`} {
		t.Run(raw, func(t *testing.T) {
			fc := &fakeClient{responses: []*transport.TurnResponse{
				{Action: "ask_question", Message: strPtr("Phone?"), Context: session.Context{"status": "collecting"}},
				decodeResponse(t, `{"action": "ask_question", "message": "Name?", "context": `+raw+`}`),
			}}
			o := newTestOrchestrator(t, fc)
			ctx := context.Background()

			require.NoError(t, o.SubmitText(ctx, "create customer"))
			require.NoError(t, o.SubmitText(ctx, "9876543210"))

			msgs := o.Messages()
			require.Len(t, msgs, 5)
			assert.Equal(t, "Name?", msgs[4].Text)
			assert.Equal(t, session.Context{"language": "en", "status": "collecting"}, o.Context())
		})
	}
}

func TestSubmitText_Empty(t *testing.T) {
	fc := &fakeClient{}
	o := newTestOrchestrator(t, fc)
	require.ErrorIs(t, o.SubmitText(context.Background(), "   "), ErrEmptyText)
	assert.Len(t, o.Messages(), 1)
	assert.Equal(t, 0, fc.turnCount())
}

// Scenario F
func TestSubmitText_ResetCommandNeverReachesTransport(t *testing.T) {
	fc := &fakeClient{responses: []*transport.TurnResponse{
		{Action: "ask_question", Message: strPtr("Name?"), Context: session.Context{"status": "collecting"}},
	}}
	o := newTestOrchestrator(t, fc)
	ctx := context.Background()

	require.NoError(t, o.SubmitText(ctx, "create customer"))
	require.NoError(t, o.SubmitText(ctx, "  ReSeT\t"))

	assert.Equal(t, 1, fc.turnCount())
	assert.Equal(t, []string{o.SessionID()}, fc.resets)
	assert.Equal(t, []string{greetingEN}, texts(o.Messages()))
	assert.Equal(t, session.Context{"language": "en"}, o.Context())
	assert.Equal(t, StageHidden, o.InputStage())
}

func TestRequestReset_Idempotent(t *testing.T) {
	fc := &fakeClient{resetErr: errors.New("backend down")}
	o := newTestOrchestrator(t, fc)
	ctx := context.Background()

	require.NoError(t, o.SubmitText(ctx, "create invoice"))
	require.NoError(t, o.RequestReset(ctx))
	first := texts(o.Messages())
	firstCtx := o.Context()

	require.NoError(t, o.RequestReset(ctx))
	assert.Equal(t, first, texts(o.Messages()))
	assert.Equal(t, firstCtx, o.Context())
	assert.Equal(t, []string{greetingEN}, first)
	assert.Equal(t, session.Context{"language": "en"}, firstCtx)
	assert.Equal(t, StageHidden, o.InputStage())
	assert.Len(t, fc.resets, 2)
	assert.False(t, o.Busy())
}

func TestSubmitText_BackendReset(t *testing.T) {
	fc := &fakeClient{responses: []*transport.TurnResponse{
		{Action: "ask_question", Message: strPtr("Name?"), Context: session.Context{"status": "collecting"}},
		{Action: "reset_success", Context: session.Context{"status": "stale"}},
	}}
	o := newTestOrchestrator(t, fc)
	ctx := context.Background()

	require.NoError(t, o.SubmitText(ctx, "create customer"))
	require.NoError(t, o.SubmitText(ctx, "start over"))

	assert.Equal(t, []string{greetingEN, "Chat has been reset."}, texts(o.Messages()))
	assert.Equal(t, session.Context{"language": "en"}, o.Context())
	assert.Equal(t, StageHidden, o.InputStage())
	assert.Empty(t, fc.resets)
}

func TestQuickAction(t *testing.T) {
	fc := &fakeClient{}
	o := newTestOrchestrator(t, fc)
	ctx := context.Background()

	require.NoError(t, o.QuickAction(ctx, "create-invoice"))
	require.Len(t, fc.turns, 1)
	assert.Equal(t, "create invoice", fc.turns[0].Text)
	assert.Equal(t, StageVisible, o.InputStage())

	err := o.QuickAction(ctx, "teleport")
	require.ErrorIs(t, err, ErrUnknownQuickAction)
	assert.Equal(t, 1, fc.turnCount())
	assert.Len(t, o.QuickActions(), 3)
}

func TestBusyGatesAllEntryPoints(t *testing.T) {
	started := make(chan struct{})
	unblock := make(chan struct{})
	fc := &fakeClient{}
	fc.onSend = func(transport.TurnRequest) {
		close(started)
		<-unblock
	}
	o := newTestOrchestrator(t, fc)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- o.SubmitText(ctx, "create invoice")
	}()
	<-started

	assert.True(t, o.Busy())
	assert.ErrorIs(t, o.SubmitText(ctx, "again"), ErrBusy)
	assert.ErrorIs(t, o.QuickAction(ctx, "list-items"), ErrBusy)
	assert.ErrorIs(t, o.SubmitFile(ctx, transport.File{Name: "a.png", Content: bytes.NewReader(nil)}), ErrBusy)
	assert.ErrorIs(t, o.RequestReset(ctx), ErrBusy)
	assert.ErrorIs(t, o.SetLanguage(ctx, session.LanguageKannada), ErrBusy)
	assert.Len(t, o.Messages(), 2)

	close(unblock)
	require.NoError(t, <-done)
	assert.False(t, o.Busy())
	assert.Len(t, o.Messages(), 3)
	assert.Equal(t, 1, fc.turnCount())
	assert.Empty(t, fc.uploads)
	assert.Empty(t, fc.resets)
	assert.Equal(t, session.LanguageEnglish, o.Language())
}

func TestEachTurnAppendsOneUserAndOneBotEntry(t *testing.T) {
	fc := &fakeClient{responses: []*transport.TurnResponse{
		{Action: "general_response", Message: strPtr("hi")},
		{Action: "teleport"},
		{Action: "list_items", Message: strPtr("1. Rice")},
	}}
	o := newTestOrchestrator(t, fc)
	ctx := context.Background()

	for i, text := range []string{"hello", "what", "list items"} {
		require.NoError(t, o.SubmitText(ctx, text))
		msgs := o.Messages()
		require.Len(t, msgs, 1+2*(i+1))
		assert.False(t, msgs[len(msgs)-2].IsBot)
		assert.Equal(t, text, msgs[len(msgs)-2].Text)
		assert.True(t, msgs[len(msgs)-1].IsBot)
	}
}

func TestSetLanguage_StickyAcrossReplace(t *testing.T) {
	fc := &fakeClient{responses: []*transport.TurnResponse{
		{Action: "ask_question", Message: strPtr("?"), Context: session.Context{"language": "en", "status": "collecting"}},
		{Action: "customer_created", ContactID: "C-9"},
	}}
	o := newTestOrchestrator(t, fc)
	ctx := context.Background()

	require.NoError(t, o.SetLanguage(ctx, session.LanguageKannada))
	assert.Equal(t, session.LanguageKannada, o.Language())
	assert.Equal(t, session.Context{"language": "kn"}, o.Context())
	msgs := o.Messages()
	require.Len(t, msgs, 1)
	assert.NotEqual(t, greetingEN, msgs[0].Text)

	require.NoError(t, o.SubmitText(ctx, "create customer"))
	assert.Equal(t, "kn", fc.turns[0].Context["language"])
	assert.Equal(t, session.Context{"language": "kn", "status": "collecting"}, o.Context())

	require.NoError(t, o.SubmitText(ctx, "yes"))
	assert.Equal(t, "ಗ್ರಾಹಕರನ್ನು ರಚಿಸಲಾಗಿದೆ: ID C-9", o.Messages()[4].Text)
	assert.Equal(t, session.Context{"language": "kn"}, o.Context())
}

func TestSetLanguage_KeepsConversation(t *testing.T) {
	o := newTestOrchestrator(t, &fakeClient{})
	ctx := context.Background()
	require.NoError(t, o.SubmitText(ctx, "hello"))

	require.NoError(t, o.SetLanguage(ctx, session.LanguageKannada))
	msgs := o.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, greetingEN, msgs[0].Text)
}

func TestSetLanguage_Invalid(t *testing.T) {
	o := newTestOrchestrator(t, &fakeClient{})
	err := o.SetLanguage(context.Background(), session.Language("fr"))
	require.ErrorIs(t, err, session.ErrUnknownLanguage)
	assert.Equal(t, session.LanguageEnglish, o.Language())
}

// Scenario C
func TestSubmitFile_NothingExtracted(t *testing.T) {
	fc := &fakeClient{extraction: &transport.ExtractionResult{Text: ""}}
	o := newTestOrchestrator(t, fc)

	require.NoError(t, o.SubmitFile(context.Background(), transport.File{Name: "scan.png", Content: bytes.NewReader([]byte("png"))}))

	assert.Equal(t, []string{
		greetingEN,
		"Uploading scan.png...",
		"No text could be extracted from scan.png.",
	}, texts(o.Messages()))
	assert.Equal(t, 0, fc.turnCount())
	assert.Equal(t, StageHidden, o.InputStage())
	assert.False(t, o.Busy())
}

// Scenario D
func TestSubmitFile_ExtractedTextIsSubmitted(t *testing.T) {
	fc := &fakeClient{
		extraction: &transport.ExtractionResult{Text: "Asha 9876543210\n"},
		responses:  []*transport.TurnResponse{{Action: "ask_question", Message: strPtr("Create customer Asha?")}},
	}
	o := newTestOrchestrator(t, fc)

	var stageAtSend InputStage
	var msgsAtSend []messages.Message
	var busyAtSend bool
	fc.onSend = func(transport.TurnRequest) {
		stageAtSend = o.InputStage()
		msgsAtSend = o.Messages()
		busyAtSend = o.Busy()
	}

	require.NoError(t, o.SubmitFile(context.Background(), transport.File{Name: "card.jpg", Content: bytes.NewReader([]byte("jpg"))}))

	require.Len(t, fc.turns, 1)
	assert.Equal(t, "Asha 9876543210", fc.turns[0].Text)
	assert.Equal(t, StageVisible, stageAtSend)
	assert.True(t, busyAtSend)
	assert.Equal(t, []string{
		greetingEN,
		"Uploading card.jpg...",
		"Extracted text:\nAsha 9876543210",
		"Asha 9876543210",
	}, texts(msgsAtSend))

	msgs := o.Messages()
	require.Len(t, msgs, 5)
	assert.True(t, msgs[2].IsBot)
	assert.False(t, msgs[3].IsBot)
	assert.Equal(t, "Create customer Asha?", msgs[4].Text)
	assert.False(t, o.Busy())
}

func TestSubmitFile_ExtractedBootstrapCommand(t *testing.T) {
	fc := &fakeClient{
		extraction: &transport.ExtractionResult{Text: "create customer"},
		responses: []*transport.TurnResponse{
			{Action: "ask_question", Message: strPtr("Name?"), Context: session.Context{"status": "collecting"}},
		},
	}
	o := newTestOrchestrator(t, fc)

	require.NoError(t, o.SubmitFile(context.Background(), transport.File{Name: "note.jpg", Content: bytes.NewReader([]byte("jpg"))}))

	require.Len(t, fc.turns, 1)
	assert.Equal(t, "create customer", fc.turns[0].Text)
	assert.Equal(t, session.Context{"language": "en"}, fc.turns[0].Context)
	assert.Equal(t, StageVisible, o.InputStage())
	assert.Equal(t, []string{
		greetingEN,
		"Uploading note.jpg...",
		"Extracted text:\ncreate customer",
		"create customer",
		"Name?",
	}, texts(o.Messages()))
	assert.Equal(t, session.Context{"language": "en", "status": "collecting"}, o.Context())
	assert.False(t, o.Busy())
}

func TestSubmitFile_ExtractedResetCommand(t *testing.T) {
	fc := &fakeClient{extraction: &transport.ExtractionResult{Text: "RESET"}}
	o := newTestOrchestrator(t, fc)

	require.NoError(t, o.SubmitFile(context.Background(), transport.File{Name: "r.png", Content: bytes.NewReader(nil)}))

	assert.Equal(t, 0, fc.turnCount())
	assert.Len(t, fc.resets, 1)
	assert.Equal(t, []string{greetingEN}, texts(o.Messages()))
	assert.Equal(t, StageHidden, o.InputStage())
}

func TestSubmitFile_UploadFailure(t *testing.T) {
	fc := &fakeClient{
		responses: []*transport.TurnResponse{
			{Action: "ask_question", Message: strPtr("Name?"), Context: session.Context{"status": "collecting"}},
		},
		uploadErr: &transport.Error{Op: "upload for extraction", StatusCode: 500, Body: "ocr engine down"},
	}
	o := newTestOrchestrator(t, fc)
	ctx := context.Background()
	require.NoError(t, o.SubmitText(ctx, "create customer"))

	require.NoError(t, o.SubmitFile(ctx, transport.File{Name: "scan.png", Content: bytes.NewReader(nil)}))

	msgs := o.Messages()
	require.Len(t, msgs, 5)
	assert.Equal(t, "Uploading scan.png...", msgs[3].Text)
	assert.Equal(t, "Could not extract text from scan.png: 500 ocr engine down", msgs[4].Text)
	assert.Equal(t, 1, fc.turnCount())
	assert.Equal(t, session.Context{"language": "en", "status": "collecting"}, o.Context())
	assert.False(t, o.Busy())
}

func TestOnChange(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	o := newTestOrchestrator(t, &fakeClient{}, WithOnChange(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	}))
	require.NoError(t, o.SubmitText(context.Background(), "hello"))

	mu.Lock()
	defer mu.Unlock()
	// busy, user message, bot message, idle
	assert.Equal(t, 4, calls)
}
