// Package source provides the record sources that feed the world builder:
// a JSONL stream (the extraction pipeline's interchange format), a staged
// PostgreSQL table, and a Kafka topic. Each source yields complete
// address.Record values; incomplete records are salvaged or skipped at the
// source boundary.
package source

import (
	"context"

	"github.com/addrindex/addrindex/internal/address"
)

// Source yields address records one at a time. Next returns io.EOF when the
// input is exhausted. Sources are single-consumer and not safe for concurrent
// Next calls.
type Source interface {
	Next(ctx context.Context) (address.Record, error)
}

// Drain feeds every record from src into emit until EOF or error.
func Drain(ctx context.Context, src Source, emit func(address.Record) error) error {
	for {
		rec, err := src.Next(ctx)
		if err != nil {
			if isEOF(err) {
				return nil
			}
			return err
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
}
