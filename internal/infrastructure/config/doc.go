// Package config loads and validates the session CLI configuration.
//
// Configuration comes from a YAML file with environment variable
// overrides for secrets and deployment-specific values (GLSESSION_*).
// Watch additionally observes the file for edits so connection
// parameter changes can drive a session reconfiguration without a
// restart.
package config
