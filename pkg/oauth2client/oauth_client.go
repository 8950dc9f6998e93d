/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package oauth2client wraps the authorization-code pieces of an OpenID4VCI
// issuance: PKCE generation, pushed authorization requests and the code
// exchange at the token endpoint.
package oauth2client

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

type Client struct {
}

func NewOAuth2Client() *Client {
	return &Client{}
}

func (c *Client) Exchange(
	ctx context.Context,
	cfg oauth2.Config,
	code string,
	client *http.Client,
	opts ...oauth2.AuthCodeOption,
) (*oauth2.Token, error) {
	return (&cfg).Exchange(
		context.WithValue(ctx, oauth2.HTTPClient, client),
		code,
		opts...,
	)
}

func (c *Client) AuthCodeURL(_ context.Context, cfg oauth2.Config, state string, opts ...oauth2.AuthCodeOption) string {
	return (&cfg).AuthCodeURL(state, opts...)
}
