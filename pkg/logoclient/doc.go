// Package logoclient provides the primary entry point for constructing a
// Logo Objects REST API client that implements the logo.Client interface.
//
// It layers configuration, HTTP transport and OAuth2 authentication on top of
// the interfaces and types defined in the logo package. Most applications
// import logoclient to build a client, then use the returned logo.Client to
// reach the entity clients, for example Entity("items") or Entity("arps").
//
// Quick start
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
//
//	  cli, err := logoclient.New(ctx, &logo.Config{
//	    APIEndpoint: "https://erp.example.com/api/v1",
//	    Username:    "LOGO",
//	    Password:    "secret",
//	    FirmNo:      "1",
//	  })
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  items, err := cli.Entity(logo.EntityItems)
//	  if err != nil { log.Fatal(err) }
//
//	  page, err := items.GetAll(ctx, logo.NewQueryOptions().WithLimit(10).WithCount(true))
//	  if err != nil { log.Fatal(err) }
//	  _ = page
//
//	  found, err := items.Search(ctx, logo.SearchCriteria{"code": "HDD"}, nil)
//	  if err != nil { log.Fatal(err) }
//	  _ = found
//
//	  price, err := items.Invoke(ctx, "GetPrice", logo.MethodGet,
//	    logo.ActionParams{"itemCode": "HDD-1", "priceType": 2})
//	  if err != nil { log.Fatal(err) }
//	  _ = price
//	}
//
// # Authentication
//
// The token endpoint defaults to APIEndpoint + "/token". A static AccessToken
// is used as is; with a RefreshToken or credentials alongside it, the client
// obtains a new token when the service answers 401. See logo.Config for the
// full precedence.
//
// # Helpers
//
// The package also provides convenience constructors NewWithEndpoint,
// NewWithToken, NewWithClientCredentials and NewWithPassword for common
// setups.
package logoclient
