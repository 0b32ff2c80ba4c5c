// Package fillrun defines the data model of a document-to-template fill:
// the fields extracted from a PDF, the spreadsheet cells they map to, the
// values stored for those cells and the run status machine.
//
// A FillRun is the aggregate root. Every mapping or value change goes
// through the reconcile package, which owns one run at a time; this
// package only describes shapes, addressing and transitions.
//
// Cells are addressed in A1 notation. Sheet names compare case-insensitively,
// the way spreadsheet applications treat them:
//
//	ref, _ := fillrun.ParseCellRef("Sheet1!B4")
//	ref.Key() == fillrun.MustCellRef("sheet1", "b4").Key() // true
package fillrun
