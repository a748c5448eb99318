// Package ratelimit throttles outbound image requests so a scan does not
// overload the image server.
//
// The bucket starts full and regains tokens continuously, so a limit of 60
// per minute allows a short burst and then one request per second.
//
//	limiter := ratelimit.New(cfg.Verify.RequestsPerMinute)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
package ratelimit
