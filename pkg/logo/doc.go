// Package logo provides types, interfaces, and helpers for working with the
// Logo Objects REST API.
//
// # Overview
//
// The logo package defines the Client and EntityClient interfaces, the list
// query model, the search expression builder and the error taxonomy. A
// concrete implementation is provided by the logoclient package, which wires
// configuration, transport, authentication and the entity catalog. Most
// consumers import logoclient to construct a client and then use the
// interfaces exposed here.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/logo-objects/pkg/logo"
//	  "github.com/fivetwenty-io/logo-objects/pkg/logoclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := logoclient.NewWithToken(ctx, "https://erp.example.com/api/v1", "token")
//	  if err != nil { log.Fatal(err) }
//
//	  arps, err := cli.Entity(logo.EntityArps)
//	  if err != nil { log.Fatal(err) }
//
//	  page, err := arps.GetAll(ctx, logo.NewQueryOptions().WithLimit(50).WithSort(logo.SortAsc, "CODE"))
//	  if err != nil { log.Fatal(err) }
//	  _ = page
//	}
//
// # Queries and pagination
//
// QueryOptions carries limit, offset, fields, sort, q, count and expand. They
// are encoded in that fixed order, and invalid values are rejected with an
// InvalidArgumentError before any request is sent. To walk a whole
// collection use the iterator:
//
//	it := logo.NewPaginationIterator[logo.Record](ctx, arps, nil, logo.DefaultPaginationOptions())
//	for it.HasNext() {
//	  record, err := it.Next()
//	  if err != nil { return err }
//	  _ = record
//	}
//
// FetchAllPages and StreamPages are built on the same iterator.
//
// # Search
//
// Every entity declares the search keys it accepts. Search turns the set keys
// into FIELD like 'value*' conditions joined with "and", doubling single
// quotes in values:
//
//	found, err := arps.Search(ctx, logo.SearchCriteria{"title": "O'Neil"}, nil)
//
// # Vendor actions
//
// Entities expose vendor actions through Invoke. GET renders the parameters
// as path segments in declaration order, POST sends them as a JSON object:
//
//	res, err := items.Invoke(ctx, "GetPrice", logo.MethodGet,
//	  logo.ActionParams{"itemCode": "HDD-1", "priceType": 2})
//	price, _ := res.Parameter("Price")
//
// # Errors
//
// Failures fall into three families. Use the predicates to branch:
//
//	logo.IsInvalidArgument(err) // rejected input, nothing was sent
//	logo.IsTransport(err)       // connection, timeout, cancellation or decode failure
//	logo.StatusCode(err)        // non-2xx answer from the service, see APIError
//
// # Batch operations
//
// BatchExecutor runs independent CRUD and action operations concurrently and
// returns one BatchResult per operation, in input order.
//
// # Interceptors and events
//
// Request and response interceptors see every call. The package ships
// logging, header, request id and metrics interceptors, and
// EventResponseInterceptor which publishes a ChangeEvent after every
// successful mutating call.
package logo
