package runs

import (
	"context"

	"github.com/agentstation/fillmap/internal/store"
	"github.com/agentstation/fillmap/pkg/fillrun"
	"github.com/agentstation/fillmap/pkg/workbook"
)

// TestTemplate is the in-memory template behind fillrun.NewTestRun:
// Sheet1 with B4 "950,000", C4 "80,000", D2 "Q1" and E9 =SUM(B1:B8)
// cached as 42.
func TestTemplate() *workbook.Memory {
	src := workbook.NewMemory("Sheet1")
	_ = src.SetValue("Sheet1", "A4", "Total assets")
	_ = src.SetValue("Sheet1", "B4", "950,000")
	_ = src.SetValue("Sheet1", "C4", "80,000")
	_ = src.SetValue("Sheet1", "D2", "Q1")
	_ = src.SetFormula("Sheet1", "E9", "SUM(B1:B8)", "42")
	return src
}

// NewTestService returns a memory-backed service holding fillrun.NewTestRun
// with TestTemplate registered under its template id.
func NewTestService(opts ...Option) *Service {
	registry := workbook.NewRegistry(0)
	run := fillrun.NewTestRun()
	registry.Register(run.TemplateID, TestTemplate())

	st := store.NewMemory()
	_ = st.Put(context.Background(), run)
	return New(st, registry, opts...)
}
