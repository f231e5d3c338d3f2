package config

// SampleConfig returns a fully commented configuration file
func SampleConfig() string {
	return `# TrackWise configuration
version: "1.0"

# Deployment variant: managed (AWS) or local (self-hosted)
variant: local

auth:
  # Shared bearer token required on every API request.
  # Empty disables authentication.
  token: ""

# Managed variant service endpoints
aws:
  region: us-east-1
  opensearch_endpoint: ""
  opensearch_index: transactions
  s3_bucket: ""
  s3_prefix: ""
  dynamo_table: ""

embedding:
  # local: Ollama model name, managed: Bedrock model ID
  model: all-minilm
  endpoint: http://localhost:11434
  timeout: 30s
  # Managed variant request rate limit, 0 disables
  requests_per_minute: 0

generation:
  model: tinyllama
  endpoint: http://localhost:11434
  max_tokens: 256
  temperature: 0.5
  timeout: 60s

retrieval:
  top_k: 3
  # true: re-ingesting a record overwrites it, false: duplicates accumulate
  replace: false

storage:
  dir: ~/.cache/trackwise
  index_key: index.bin
  cache_key: texts.json
  # Reload the local index when another process publishes new blobs
  watch_reload: false

server:
  addr: ":8080"
  timeout: 90s
`
}

// MinimalSampleConfig returns a compact configuration with only the
// settings most installs change.
func MinimalSampleConfig() string {
	return `version: "1.0"
variant: local
auth:
  token: ""
retrieval:
  top_k: 3
server:
  addr: ":8080"
`
}
