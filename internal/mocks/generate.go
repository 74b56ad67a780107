// Package mocks holds gomock doubles for the storage ports.
//
// Regenerate after interface changes with:
//
//	go generate ./internal/mocks
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=session_store_mock.go github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/session Store
