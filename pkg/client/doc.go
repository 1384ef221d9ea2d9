// Package client is the anchorlog Go SDK.
//
// It wraps the HTTP API: ingesting audit events, reading and querying
// records, verifying a record against the ledger, and operator maintenance.
//
// # Ingesting an event
//
//	c, err := client.New("http://localhost:8080")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := c.CreateLog(ctx, "user.login", "info", map[string]any{"user": "alice"})
//	fmt.Println(res.ID, res.Hash, res.AnchorStatus) // ... pending
//
// Anchoring happens in the background. Poll GetLog until AnchorStatus is
// "confirmed" or "failed", then call VerifyLog:
//
//	v, err := c.VerifyLog(ctx, res.ID)
//	if !v.IsValid {
//	    fmt.Println(v.Message)
//	}
//
// # Querying
//
//	page, err := c.QueryLogs(ctx, client.QueryOptions{
//	    EventType: "user.login",
//	    From:      time.Now().Add(-24 * time.Hour),
//	    Limit:     50,
//	})
//
// # Caching
//
// Records that reached a terminal anchor status never change, so GetLog can
// cache them:
//
//	c, _ := client.New(baseURL, client.WithCacheTTL(10*time.Minute))
//
// # Admin operations
//
// The retention sweep requires an admin token (see 'anchorctl token'):
//
//	c, _ := client.New(baseURL, client.WithAdminToken(tok))
//	deleted, err := c.Sweep(ctx, 90)
package client
