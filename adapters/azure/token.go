package azure

import (
	"context"
	"fmt"
	"net/url"

	"azure-costs/internal/errors"
)

const managementAuthURL = "https://management.core.windows.net/"

// loginURL is a variable so tests can stand in a local identity provider.
var loginURL = "https://login.microsoftonline.com"

// AcquireToken exchanges client credentials for a bearer token via the
// identity provider's OAuth token endpoint. The exchange goes through the
// same retry-aware fetcher as every other request.
func AcquireToken(ctx context.Context, client *Client, tenantID, clientID, clientSecret string) (string, error) {
	tokenURL := fmt.Sprintf("%s/%s/oauth2/token?api-version=1.0", loginURL, tenantID)
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"resource":      {managementAuthURL},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}

	doc, err := client.PostForm(ctx, tokenURL, form)
	if err != nil {
		return "", errors.Wrap(errors.TypeToken, "acquiring access token", err)
	}

	token, ok := doc.GetString("access_token")
	if !ok || token == "" {
		return "", errors.New(errors.TypeToken, "token response without access_token")
	}
	return token, nil
}
