/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package oidc4vci

import (
	"fmt"
	"net/http"

	"github.com/cenkalti/backoff/v4"
)

const maxProtocolRetries = 3

// retryRoundTripper retries transport failures and 5xx responses with
// exponential backoff. 4xx responses pass through untouched: they signal a
// request the issuer will keep rejecting.
type retryRoundTripper struct {
	base       http.RoundTripper
	maxRetries uint64
}

// newRetryClient wraps client so that protocol POSTs to the issuer are
// retried on transient failures.
func newRetryClient(client *http.Client) *http.Client {
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	wrapped := *client
	wrapped.Transport = &retryRoundTripper{
		base:       base,
		maxRetries: maxProtocolRetries,
	}

	return &wrapped
}

func (r *retryRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response

	attempt := func() error {
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return backoff.Permanent(err)
			}

			req.Body = body
		}

		var err error

		resp, err = r.base.RoundTrip(req) //nolint:bodyclose
		if err != nil {
			return err
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			_ = resp.Body.Close()

			return fmt.Errorf("issuer responded with status code %d", resp.StatusCode)
		}

		return nil
	}

	err := backoff.Retry(attempt,
		backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), r.maxRetries),
			req.Context()))
	if err != nil {
		return nil, err
	}

	return resp, nil
}
