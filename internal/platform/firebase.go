// Package platform builds the long-lived clients the service depends on.
package platform

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/af-corp/taskmind/internal/config"
)

// Firebase SDKs read the Auth emulator address from this variable.
const authEmulatorEnv = "FIREBASE_AUTH_EMULATOR_HOST"

// NewFirebaseApp initialises the Firebase Admin app. Without a credentials file
// Application Default Credentials are used.
func NewFirebaseApp(ctx context.Context, cfg config.FirebaseConfig) (*firebase.App, error) {
	if cfg.AuthEmulatorHost != "" {
		if err := os.Setenv(authEmulatorEnv, cfg.AuthEmulatorHost); err != nil {
			return nil, fmt.Errorf("set auth emulator host: %w", err)
		}
	}

	var fbCfg *firebase.Config
	if cfg.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbCfg, credentialOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	return app, nil
}

// NewAuthClient returns the Firebase Auth client used to verify ID tokens.
func NewAuthClient(ctx context.Context, app *firebase.App) (*fbauth.Client, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return client, nil
}

// NewFirestoreClient connects to Firestore, or to the emulator when one is
// configured.
func NewFirestoreClient(ctx context.Context, cfg config.FirebaseConfig) (*firestore.Client, error) {
	opts, err := firestoreOptions(cfg)
	if err != nil {
		return nil, err
	}

	projectID := cfg.ProjectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	databaseID := cfg.DatabaseID
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firestore: %w", err)
	}
	return client, nil
}

func credentialOptions(cfg config.FirebaseConfig) []option.ClientOption {
	if cfg.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}
}

func firestoreOptions(cfg config.FirebaseConfig) ([]option.ClientOption, error) {
	if cfg.FirestoreEmulatorHost == "" {
		return credentialOptions(cfg), nil
	}

	conn, err := grpc.NewClient(cfg.FirestoreEmulatorHost,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithPerRPCCredentials(emulatorCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("dial firestore emulator: %w", err)
	}
	return []option.ClientOption{option.WithGRPCConn(conn)}, nil
}

// emulatorCredentials authenticates as the emulator's privileged owner, which
// bypasses security rules the way the Admin SDK does in production.
type emulatorCredentials struct{}

func (emulatorCredentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer owner"}, nil
}

func (emulatorCredentials) RequireTransportSecurity() bool { return false }
