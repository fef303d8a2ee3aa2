package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_UptraceDSNFromOTLPHeaders(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", `foo=bar, uptrace-dsn="https://token@api.uptrace.dev?grpc=4317"`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.UptraceDSN != "https://token@api.uptrace.dev?grpc=4317" {
		t.Fatalf("unexpected UptraceDSN: %q", cfg.UptraceDSN)
	}
}

func TestLoad_DefaultsByEnv(t *testing.T) {
	t.Run("prod disables swagger and uses postgres", func(t *testing.T) {
		t.Setenv("APP_ENV", EnvProd)
		t.Setenv("SWAGGER_ENABLED", "")
		t.Setenv("STORE_DRIVER", "")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.SwaggerEnabled {
			t.Fatalf("expected SwaggerEnabled=false in prod by default")
		}
		if cfg.StoreDriver != StorePostgres {
			t.Fatalf("expected postgres store in prod, got %q", cfg.StoreDriver)
		}
	})

	t.Run("dev enables swagger and uses memory", func(t *testing.T) {
		t.Setenv("APP_ENV", EnvDev)
		t.Setenv("SWAGGER_ENABLED", "")
		t.Setenv("STORE_DRIVER", "")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if !cfg.SwaggerEnabled {
			t.Fatalf("expected SwaggerEnabled=true in dev by default")
		}
		if cfg.StoreDriver != StoreMemory {
			t.Fatalf("expected memory store in dev, got %q", cfg.StoreDriver)
		}
		if cfg.AuthMode != AuthAnubis || cfg.BlobDriver != BlobLocal {
			t.Fatalf("unexpected drivers: auth=%s blob=%s", cfg.AuthMode, cfg.BlobDriver)
		}
		if cfg.ProofMaxBytes != 5<<20 || !cfg.MetricsEnabled {
			t.Fatalf("unexpected defaults: proof_max=%d metrics=%v", cfg.ProofMaxBytes, cfg.MetricsEnabled)
		}
	})
}

func TestLoad_InvalidValuesNameTheKey(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{key: "STORE_DRIVER", value: "sqlite"},
		{key: "AUTH_MODE", value: "basic"},
		{key: "BLOB_DRIVER", value: "gcs"},
		{key: "APP_READ_TIMEOUT", value: "soon"},
		{key: "ANUBIS_CACHE_TTL", value: "-1s"},
		{key: "PROOF_MAX_BYTES", value: "0"},
		{key: "BLOB_DELETE_WORKERS", value: "many"},
		{key: "S3_CIRCUIT_FAILURE_COUNT", value: "0"},
		{key: "METRICS_ENABLED", value: "maybe"},
		{key: "DB_DISABLE_PREPARED_BINARY_RESULT", value: "not-bool"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv("APP_ENV", EnvDev)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), "parse "+tt.key) {
				t.Fatalf("expected error to name %s, got %v", tt.key, err)
			}
		})
	}
}

func TestLoad_AuthModeRequirements(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("AUTH_MODE", AuthJWT)

	t.Run("jwt requires secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error when AUTH_MODE=jwt without JWT_SECRET")
		}
	})

	t.Run("jwt with secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("JWT_ISSUER", "arisan")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.JWTSecret != "s3cret" || cfg.JWTIssuer != "arisan" {
			t.Fatalf("unexpected jwt config: %+v", cfg)
		}
	})
}

func TestLoad_S3Config(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("BLOB_DRIVER", "S3")

	t.Run("bucket required", func(t *testing.T) {
		t.Setenv("S3_BUCKET", "")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error when BLOB_DRIVER=s3 without S3_BUCKET")
		}
	})

	t.Run("keys set together", func(t *testing.T) {
		t.Setenv("S3_BUCKET", "proofs")
		t.Setenv("S3_ACCESS_KEY_ID", "AKIA")
		t.Setenv("S3_SECRET_ACCESS_KEY", "")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for access key without secret")
		}
	})

	t.Run("parsed", func(t *testing.T) {
		t.Setenv("S3_BUCKET", "proofs")
		t.Setenv("S3_ENDPOINT", "https://acc.r2.cloudflarestorage.com")
		t.Setenv("S3_ACCESS_KEY_ID", "AKIA")
		t.Setenv("S3_SECRET_ACCESS_KEY", "secret")
		t.Setenv("S3_USE_PATH_STYLE", "true")
		t.Setenv("S3_PRESIGN_TTL", "5m")
		t.Setenv("S3_CIRCUIT_ENABLED", "false")
		t.Setenv("S3_CIRCUIT_OPEN_TIMEOUT", "30s")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.BlobDriver != BlobS3 || cfg.S3Bucket != "proofs" || !cfg.S3UsePathStyle {
			t.Fatalf("unexpected s3 config: %+v", cfg)
		}
		if cfg.S3PresignTTL != 5*time.Minute {
			t.Fatalf("unexpected presign ttl: %s", cfg.S3PresignTTL)
		}
		if cfg.S3Circuit.Enabled || cfg.S3Circuit.OpenTimeout != 30*time.Second || cfg.S3Circuit.FailureThreshold != 5 {
			t.Fatalf("unexpected s3 circuit: %+v", cfg.S3Circuit)
		}
	})
}

func TestLoad_AnubisCircuitParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("ANUBIS_CIRCUIT_FAILURE_COUNT", "3")
	t.Setenv("ANUBIS_CIRCUIT_HALF_OPEN_MAX_REQ", "1")
	t.Setenv("ANUBIS_CACHE_TTL", "45s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.AnubisCircuit.Enabled || cfg.AnubisCircuit.FailureThreshold != 3 || cfg.AnubisCircuit.HalfOpenMaxReq != 1 {
		t.Fatalf("unexpected anubis circuit: %+v", cfg.AnubisCircuit)
	}
	if cfg.AnubisCacheTTL != 45*time.Second {
		t.Fatalf("unexpected anubis cache ttl: %s", cfg.AnubisCacheTTL)
	}
}

func TestLoad_PprofDefaultsAddrWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("PPROF_ENABLED", "true")
	t.Setenv("PPROF_ADDR", "  ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PprofAddr != ":6060" {
		t.Fatalf("expected default pprof addr :6060, got %q", cfg.PprofAddr)
	}
}

func TestLoad_PyroscopeRequiresServerAddressWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PYROSCOPE_ENABLED=true without PYROSCOPE_SERVER_ADDRESS")
	}
}

func TestLoad_PyroscopeAppNameDefaultsToServiceName(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("APP_SERVICE_NAME", "arisan-api-test")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "http://localhost:4040")
	t.Setenv("PYROSCOPE_APP_NAME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PyroscopeAppName != "arisan-api-test" {
		t.Fatalf("unexpected pyroscope app name: %q", cfg.PyroscopeAppName)
	}
}

func TestLoad_CORSOriginsDefaultAndParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	t.Run("default wildcard", func(t *testing.T) {
		t.Setenv("CORS_ALLOWED_ORIGINS", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
			t.Fatalf("unexpected default CORS origins: %+v", cfg.CORSAllowedOrigins)
		}
	})

	t.Run("comma separated parsing", func(t *testing.T) {
		t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example.com, http://localhost:5173 ")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if len(cfg.CORSAllowedOrigins) != 2 {
			t.Fatalf("unexpected CORS origins length: %d", len(cfg.CORSAllowedOrigins))
		}
		if cfg.CORSAllowedOrigins[0] != "https://a.example.com" || cfg.CORSAllowedOrigins[1] != "http://localhost:5173" {
			t.Fatalf("unexpected CORS origins: %+v", cfg.CORSAllowedOrigins)
		}
	})

	t.Run("only separators", func(t *testing.T) {
		t.Setenv("CORS_ALLOWED_ORIGINS", " , ,")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for empty CORS origins")
		}
	})
}

func TestLoad_BlobPublicBaseURLTrimsSlash(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("BLOB_PUBLIC_BASE_URL", "https://cdn.example.com/proofs/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.BlobPublicBaseURL != "https://cdn.example.com/proofs" {
		t.Fatalf("unexpected public base url: %q", cfg.BlobPublicBaseURL)
	}
}
