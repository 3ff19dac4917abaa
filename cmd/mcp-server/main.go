package main

import (
	"context"
	"log"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/markolofsen/django-cfg-sub001/pkg/cfgapi"
)

func main() {
	// Get the API base URL from environment
	baseURL := os.Getenv("CFGAPI_API")
	if baseURL == "" {
		log.Fatal("CFGAPI_API environment variable is required")
	}

	opts := &cfgapi.ClientOptions{
		BaseURL:     baseURL,
		AutoRefresh: true,
	}
	if path := os.Getenv("CFGAPI_CREDENTIALS_FILE"); path != "" {
		opts.StorageConfig = &cfgapi.StorageConfig{
			Driver: cfgapi.StorageFile,
			File:   &cfgapi.FileStorageConfig{Path: path},
		}
	}

	client, err := cfgapi.NewClient(opts)
	if err != nil {
		log.Fatalf("failed to initialize API client: %v", err)
	}
	defer client.Close()

	// A token from the environment replaces whatever the store holds
	if token := os.Getenv("CFGAPI_TOKEN"); token != "" {
		if err := client.SetToken(context.Background(), token, os.Getenv("CFGAPI_REFRESH_TOKEN")); err != nil {
			log.Fatalf("failed to store token: %v", err)
		}
	}

	impl := &mcp.Implementation{
		Name:    "django-cfg-api",
		Version: "1.0.0",
	}

	server := mcp.NewServer(impl, nil)

	// Register all tools
	registerTools(server, client)

	// Run server over stdio transport
	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func registerTools(server *mcp.Server, client *cfgapi.Client) {
	tools := &apiTools{client: client}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "api_request",
		Description: "Send a request to the django-cfg API with the stored session. Returns the HTTP status and the response body. Failed calls return the error kind and status code.",
	}, tools.Request)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_profile",
		Description: "Get the profile of the signed-in user, including email, name, company and join date.",
	}, tools.GetProfile)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "session_status",
		Description: "Report whether the client holds an access token and a refresh token, and which API it talks to.",
	}, tools.SessionStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "refresh_session",
		Description: "Exchange the stored refresh token for a new access token.",
	}, tools.RefreshSession)
}
