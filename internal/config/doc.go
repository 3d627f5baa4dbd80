// Package config handles configuration loading for foundry-relay.
//
// # Overview
//
// Configuration comes from a YAML file, from environment variables, or both.
// When a file is present its values are parsed first and environment
// variables are overlaid afterward, so env always wins. A file-less
// deployment (typical for app-service hosting) uses FromEnv.
//
// # Environment Variable Expansion
//
// Configuration values inside the YAML file can reference environment
// variables:
//
//	agent:
//	  api_key: "${AZURE_AI_API_KEY}"
//
// # Recognized Environment Variables
//
//   - AZURE_AI_PROJECT_ENDPOINT - remote project endpoint URL
//   - AZURE_AI_AGENT_ID         - agent (assistant) identifier
//   - AZURE_AI_API_KEY          - optional static API key
//   - AZURE_TENANT_ID           - identity tenant for token credentials
//   - AZURE_CLIENT_ID           - identity client for token credentials
//   - AZURE_CLIENT_SECRET       - identity secret for token credentials
//   - PORT                      - HTTP listen port
//   - DEBUG                     - "1" or "true" enables debug logging
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: ":5000"
//
// Agent service:
//
//	agent:
//	  endpoint: "https://example.services.ai.azure.com/api/projects/demo"
//	  id: "asst_abc123"
//	  api_key: "${AZURE_AI_API_KEY}"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// Metrics:
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
// # Validation
//
// Load() and FromEnv() validate that the agent endpoint parses as a URL and
// that an agent identifier is present. Credentials are deliberately not
// validated here; the credential chain reports its own availability at
// request time.
package config
