// Package config loads the graphreports settings from a dotenv file.
//
// The file is a flat KEY=value list:
//
//	CLIENT_ID=00000000-0000-0000-0000-000000000000
//	CLIENT_SECRET=...
//	PROGRAM_EMAIL=reports@example.org
//
// Each key can be overridden by an environment variable of the same name.
// Unknown keys are rejected so that a typo never silently falls back to a default.
package config
