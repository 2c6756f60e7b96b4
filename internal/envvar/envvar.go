package envvar

const (
	// SklearnModelPath is the environment variable holding the model location (local path or s3:// URL).
	SklearnModelPath = "SKLEARN_MODEL_PATH"

	// SkserveEnv is the environment variable used to determine the environment
	SkserveEnv = "SKSERVE_ENV"

	// SkserveConfig is the environment variable used to locate the config file
	SkserveConfig = "SKSERVE_CONFIG"

	// SkservePython is the environment variable used to override the Python interpreter
	SkservePython = "SKSERVE_PYTHON"

	// SkserveServerHTTPPort is the environment variable used to determine the HTTP port
	SkserveServerHTTPPort = "SKSERVE_SERVER_HTTP_PORT"

	// SkserveLogLevel is the environment variable used to determine the log level
	SkserveLogLevel = "SKSERVE_LOG_LEVEL"

	// SkserveS3Endpoint is the environment variable used to point S3 at a custom endpoint
	SkserveS3Endpoint = "SKSERVE_S3_ENDPOINT"

	// AWSRegion is the standard AWS region variable.
	AWSRegion = "AWS_REGION"
)
