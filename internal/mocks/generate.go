// Package mocks provides mock implementations for testing the export pipeline.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the core ports. The mocks are generated using go:generate directives and
// provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	lister := mocks.NewMockRecordLister(ctrl)
//	lister.EXPECT().ListWithStorageHandle(gomock.Any()).Return(records, nil)
package mocks

// Generate mocks for the export ports from internal/core:
// RecordLister (ListWithStorageHandle), FileGateway (ResolveDownloadLink,
// FetchBytes, Upload) and LinkCache (Get, Set).
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=export_ports_mock.go github.com/titulapp/thesis-api/internal/core RecordLister,FileGateway,LinkCache
