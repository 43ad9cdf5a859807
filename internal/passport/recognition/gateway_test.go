package recognition

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/oceaniatours/passport-intake/internal/domain"
)

type fakeCompleter struct {
	response string
	err      error
	waitCtx  bool

	gotRequest openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.gotRequest = req
	if f.waitCtx {
		<-ctx.Done()
		return openai.ChatCompletionResponse{}, ctx.Err()
	}
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.response}},
		},
	}, nil
}

type fakeAudit struct {
	created      *domain.OCRLog
	statusSet    domain.OCRStatus
	finishStatus domain.OCRStatus
	finishMs     int64
	finishData   *domain.RecognizedPassport
	finishError  string
}

func (f *fakeAudit) Create(_ context.Context, entry *domain.OCRLog) (int64, error) {
	f.created = entry
	return 42, nil
}

func (f *fakeAudit) SetStatus(_ context.Context, _ int64, status domain.OCRStatus) error {
	f.statusSet = status
	return nil
}

func (f *fakeAudit) Finish(_ context.Context, _ int64, status domain.OCRStatus, durationMs int64, data *domain.RecognizedPassport, ocrError string) error {
	f.finishStatus = status
	f.finishMs = durationMs
	f.finishData = data
	f.finishError = ocrError
	return nil
}

func testGatewayConfig() Config {
	return Config{
		Model:         "gpt-4o-mini",
		Timeout:       5 * time.Second,
		MaxTokens:     500,
		Temperature:   0.1,
		MaxImageWidth: 1500,
		JPEGQuality:   90,
	}
}

const modelAnswer = `Here is the extracted data:
{
  "fullName": "ZHANG-WEI/SAN",
  "chineseName": "张三",
  "passportNumber": "e 1234 5678",
  "gender": "male",
  "nationality": "CHINA",
  "birthDate": "1990-06-01",
  "issueDate": "01/01/2020",
  "expiryDate": "01.01.2030",
  "birthPlace": "Place of Birth: BEIJING, CHINA"
}`

func TestRecognize_NormalizesFields(t *testing.T) {
	completer := &fakeCompleter{response: modelAnswer}
	audit := &fakeAudit{}
	gw := NewGatewayWithClient(completer, audit, testGatewayConfig())

	data, logID, err := gw.Recognize(context.Background(), []byte("raw"), DocChina, Attempt{
		UploadLink:    "link-1",
		OperationType: domain.OperationPreview,
		OperatorName:  "traveler",
	})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if logID != 42 {
		t.Fatalf("logID = %d, want 42", logID)
	}

	if data.FullName != "ZHANG WEI/SAN" {
		t.Errorf("FullName = %q", data.FullName)
	}
	if data.PassportNumber != "E12345678" {
		t.Errorf("PassportNumber = %q", data.PassportNumber)
	}
	if data.Gender != "M" {
		t.Errorf("Gender = %q", data.Gender)
	}
	if data.Nationality != "CHN" {
		t.Errorf("Nationality = %q", data.Nationality)
	}
	if data.BirthDate != "01/06/1990" {
		t.Errorf("BirthDate = %q", data.BirthDate)
	}
	if data.ExpiryDate != "01/01/2030" {
		t.Errorf("ExpiryDate = %q", data.ExpiryDate)
	}
	if data.BirthPlace != "BEIJING" {
		t.Errorf("BirthPlace = %q", data.BirthPlace)
	}
}

func TestRecognize_AuditLifecycle(t *testing.T) {
	completer := &fakeCompleter{response: modelAnswer}
	audit := &fakeAudit{}
	gw := NewGatewayWithClient(completer, audit, testGatewayConfig())

	_, _, err := gw.Recognize(context.Background(), []byte("raw"), DocGeneric, Attempt{
		UploadLink:    "link-2",
		OperationType: domain.OperationUpload,
		OperatorName:  "traveler",
		ImageSize:     1234,
	})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}

	if audit.created == nil || audit.created.OCRStatus != domain.OCRPending {
		t.Fatal("audit row must start pending")
	}
	if audit.created.OCRModel != "gpt-4o-mini" {
		t.Errorf("OCRModel = %q", audit.created.OCRModel)
	}
	if audit.created.ImageSize != 1234 {
		t.Errorf("ImageSize = %d", audit.created.ImageSize)
	}
	if audit.statusSet != domain.OCRProcessing {
		t.Errorf("intermediate status = %q, want processing", audit.statusSet)
	}
	if audit.finishStatus != domain.OCRSuccess {
		t.Errorf("final status = %q, want success", audit.finishStatus)
	}
	if audit.finishData == nil {
		t.Error("success must attach recognized data to the audit row")
	}
	if audit.finishMs < 0 {
		t.Errorf("duration = %d", audit.finishMs)
	}
}

func TestRecognize_TransportErrorAuditsFailure(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("upstream down")}
	audit := &fakeAudit{}
	gw := NewGatewayWithClient(completer, audit, testGatewayConfig())

	_, _, err := gw.Recognize(context.Background(), []byte("raw"), DocGeneric, Attempt{})
	if !domain.IsRecognition(err) {
		t.Fatalf("err = %v, want RecognitionError", err)
	}

	if audit.finishStatus != domain.OCRFailed {
		t.Errorf("final status = %q, want failed", audit.finishStatus)
	}
	if audit.finishError == "" {
		t.Error("failure must record the error text")
	}
	if audit.finishData != nil {
		t.Error("failure must not attach recognized data")
	}
}

func TestRecognize_NoJSONInAnswer(t *testing.T) {
	completer := &fakeCompleter{response: "I could not read this image."}
	audit := &fakeAudit{}
	gw := NewGatewayWithClient(completer, audit, testGatewayConfig())

	_, _, err := gw.Recognize(context.Background(), []byte("raw"), DocGeneric, Attempt{})
	if !domain.IsRecognition(err) {
		t.Fatalf("err = %v, want RecognitionError", err)
	}
	if audit.finishStatus != domain.OCRFailed {
		t.Errorf("final status = %q, want failed", audit.finishStatus)
	}
}

func TestRecognize_TimeoutIsFailedRecognition(t *testing.T) {
	cfg := testGatewayConfig()
	cfg.Timeout = 10 * time.Millisecond

	completer := &fakeCompleter{waitCtx: true}
	audit := &fakeAudit{}
	gw := NewGatewayWithClient(completer, audit, cfg)

	_, _, err := gw.Recognize(context.Background(), []byte("raw"), DocGeneric, Attempt{})
	if !domain.IsRecognition(err) {
		t.Fatalf("err = %v, want RecognitionError", err)
	}
	if audit.finishStatus != domain.OCRFailed {
		t.Errorf("final status = %q, want failed", audit.finishStatus)
	}
}

func TestSystemPrompt_Variants(t *testing.T) {
	generic := systemPrompt(DocGeneric)
	cn := systemPrompt(DocChina)
	nz := systemPrompt(DocNewZealand)
	au := systemPrompt(DocAustralia)

	for _, p := range []string{cn, nz, au} {
		if len(p) <= len(generic) {
			t.Fatal("variant prompts must extend the generic instructions")
		}
	}
	if !strings.Contains(cn, "Chinese passport") || !strings.Contains(nz, "New Zealand passport") || !strings.Contains(au, "Australian passport") {
		t.Fatal("variant prompts must name their document type")
	}
	if systemPrompt(DocumentType("XX")) != generic {
		t.Fatal("unknown document types must fall back to the generic prompt")
	}
}
