package acquire

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubStrategy struct {
	name   string
	result *Result
	err    error
	calls  int
}

func (s *stubStrategy) Name() string { return s.name }
func (s *stubStrategy) Attempt(context.Context, string) (*Result, error) {
	s.calls++
	return s.result, s.err
}

// countingEngine stands in for the OCR collaborator so tests can assert it
// was never reached.
type countingEngine struct {
	calls int
	text  string
	err   error
}

func (e *countingEngine) Recognize(context.Context, string) (string, error) {
	e.calls++
	return e.text, e.err
}

func TestChainShortCircuitsBeforeOCR(t *testing.T) {
	engine := &countingEngine{text: "should never be seen"}
	textLayer := &stubStrategy{
		name:   MethodPDFText,
		result: &Result{Text: "INVOICE\nAcme Supplies Co.\nTotal: $10.00", Method: MethodPDFText, Pages: 1},
	}
	tables := &stubStrategy{name: MethodPDFTables}
	ocrStrategy := NewPDFOCRStrategy(nil, engine, nil)

	chain := NewChain(nil, textLayer, tables, ocrStrategy)
	res, err := chain.Run(context.Background(), "invoice.pdf")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Method != MethodPDFText {
		t.Fatalf("method = %s, want %s", res.Method, MethodPDFText)
	}
	if engine.calls != 0 {
		t.Fatalf("OCR engine invoked %d times on a text-layer PDF", engine.calls)
	}
	if tables.calls != 0 {
		t.Fatalf("table strategy tried after text-layer hit")
	}
}

func TestChainFallsThroughFailuresAndEmptyResults(t *testing.T) {
	first := &stubStrategy{name: MethodPDFText, err: errors.New("corrupt xref")}
	second := &stubStrategy{name: MethodPDFTables, result: &Result{}} // ran, found nothing
	third := &stubStrategy{
		name:   MethodPDFOCR,
		result: &Result{Text: "Total: $5.00", Method: MethodPDFOCR, Pages: 2},
	}

	chain := NewChain(nil, first, second, third)
	res, err := chain.Run(context.Background(), "scan.pdf")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Method != MethodPDFOCR {
		t.Fatalf("method = %s, want %s", res.Method, MethodPDFOCR)
	}
	if first.calls != 1 || second.calls != 1 || third.calls != 1 {
		t.Fatalf("call counts = %d/%d/%d, want 1/1/1", first.calls, second.calls, third.calls)
	}
}

func TestChainFinalMethodErrorPropagates(t *testing.T) {
	first := &stubStrategy{name: MethodPDFText}
	last := &stubStrategy{name: MethodPDFOCR, err: errors.New("tesseract: exit status 1")}

	chain := NewChain(nil, first, last)
	if _, err := chain.Run(context.Background(), "scan.pdf"); err == nil {
		t.Fatal("expected final-method failure to surface")
	} else if !strings.Contains(err.Error(), MethodPDFOCR) {
		t.Fatalf("error %q does not name the failed method", err)
	}
}

func TestChainExhaustion(t *testing.T) {
	chain := NewChain(nil,
		&stubStrategy{name: MethodPDFText},
		&stubStrategy{name: MethodPDFTables},
		&stubStrategy{name: MethodPDFOCR, result: &Result{}},
	)
	if _, err := chain.Run(context.Background(), "blank.pdf"); err == nil {
		t.Fatal("expected exhaustion error when every method comes back empty")
	}
}

func TestSelectorRejectsUnsupportedExtension(t *testing.T) {
	sel := NewSelector(NewChain(nil), NewChain(nil))
	if _, err := sel.Acquire(context.Background(), "notes.docx"); err == nil {
		t.Fatal("expected rejection for unsupported extension")
	}
}

func TestResultEmpty(t *testing.T) {
	if !(&Result{Text: "  \n\t"}).Empty() {
		t.Fatal("whitespace-only text should count as empty")
	}
	if (&Result{Tables: [][][]string{{{"a"}}}}).Empty() {
		t.Fatal("tables without text should not count as empty")
	}
	var nilRes *Result
	if !nilRes.Empty() {
		t.Fatal("nil result should be empty")
	}
}
