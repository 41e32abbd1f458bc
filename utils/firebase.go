// utils/firebase.go
package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

var ErrFirebaseCredentialsMissing = errors.New("FIREBASE_CREDENTIALS_FILE is not set")

type serviceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
}

// readServiceAccount checks the credentials file before the SDK sees it.
// A bad file otherwise only surfaces on the first send.
func readServiceAccount(path string) (*serviceAccount, error) {
	if path == "" {
		return nil, ErrFirebaseCredentialsMissing
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("firebase: cannot read credentials file %s: %w", path, err)
	}
	var sa serviceAccount
	if err := json.Unmarshal(raw, &sa); err != nil {
		return nil, fmt.Errorf("firebase: credentials file %s is not JSON: %w", path, err)
	}
	if sa.Type != "service_account" || sa.ProjectID == "" || sa.ClientEmail == "" {
		return nil, fmt.Errorf("firebase: credentials file %s is not a service account key", path)
	}
	return &sa, nil
}

// NewFCMClient builds the messaging client used for web push from a service account key.
func NewFCMClient(ctx context.Context, credentialsFile string) (*messaging.Client, error) {
	sa, err := readServiceAccount(credentialsFile)
	if err != nil {
		return nil, err
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: sa.ProjectID}, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("firebase: error initializing app for project %s: %w", sa.ProjectID, err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: error getting Messaging client: %w", err)
	}
	return client, nil
}
