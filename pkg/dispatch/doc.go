// Package dispatch provides a data-driven dispatcher for large families of
// remote HTTP API methods behind one uniform call surface.
//
// # Overview
//
// Instead of one hand-written function per endpoint, a Registry of
// MethodDefinition entries describes every endpoint declaratively (name,
// aliases, verb, path template, required and optional parameters) and one
// generic Client.Invoke entry point resolves each call against it. The
// cross-cutting behaviors (authentication strategy, bounded retry,
// pagination, response caching, payload inflation, and the error-reporting
// policy) are independent strategy objects composed at construction time,
// so any subset may be enabled without interfering with the others.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/antipasta/dispatch/pkg/apiclient"
//	  "github.com/antipasta/dispatch/pkg/dispatch"
//	)
//
//	func example(registry *dispatch.Registry) {
//	  ctx := context.Background()
//	  cli, err := apiclient.New(&dispatch.Config{
//	    Endpoint: "https://api.example.com",
//	    Registry: registry,
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  payload, err := cli.Invoke(ctx, "update", "hello",
//	    dispatch.Args{"in_reply_to_status_id": 42})
//	  if err != nil { log.Fatal(err) }
//	  _ = payload
//	}
//
// # Pagination
//
// Two interchangeable protocols page through partial results over the same
// fetch-one-page primitive. CursorPager follows int64 cursors until the
// payload reports next_cursor == 0; PagePager increments a 1-based page
// number until a fetched page is empty:
//
//	pager := dispatch.NewCursorPager("users")
//	for {
//	  payload, done, err := cli.FetchPage(ctx, "followers", pager, nil)
//	  if err != nil { log.Fatal(err) }
//	  _ = payload
//	  if done { break }
//	}
//
// # Error reporting
//
// The throwing policy (the default) surfaces terminal failures as a
// structured *CallError. The wrapping policy instead returns a nil payload
// and records the failure, retrievable via Client.LastError, until the next
// call on the same client. The wrapping policy's record is a single
// unsynchronized slot and is not safe under concurrent calls; programs
// issuing overlapping calls should use the throwing policy.
package dispatch
