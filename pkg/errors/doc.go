// Package errors provides structured error types for better observability
// and programmatic error handling across the application.
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeChallengeFailed,
//	    "authority rejected challenge",
//	    pollErr,
//	    map[string]interface{}{
//	        "domain": domain,
//	        "issuer_class": issuerClass,
//	    },
//	)
package errors
