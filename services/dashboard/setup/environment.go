// Copyright (C) 2026 StackDash Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package setup

import (
	"os"
)

// CloudProvider identifies the cloud environment the stack runs on, if any.
type CloudProvider string

const (
	CloudNone  CloudProvider = ""
	CloudAWS   CloudProvider = "aws"
	CloudGCP   CloudProvider = "gcp"
	CloudAzure CloudProvider = "azure"
)

// Environment describes the host context the aggregator runs in.
//
// # Description
//
// Detection is a pure function of environment variables and filesystem
// markers; it performs no network calls. The result feeds two decisions:
// whether a cloud CLI prerequisite is appended to the base list, and
// whether host-only tool probes are short-circuited (see PolicyFor).
type Environment struct {
	// InContainer is true when the process runs inside a container or a
	// managed cluster pod.
	InContainer bool

	// Provider is the detected cloud provider, CloudNone when unknown.
	Provider CloudProvider
}

// EnvReader is the key-value lookup used by environment detection.
//
// The production reader is os.LookupEnv; tests inject a map-backed one.
type EnvReader func(key string) (string, bool)

// MapEnvReader returns an EnvReader backed by a fixed map, for tests.
func MapEnvReader(vars map[string]string) EnvReader {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

// containerMarkerFiles are filesystem paths whose presence indicates a
// containerized context.
var containerMarkerFiles = []string{
	"/.dockerenv",
	"/run/.containerenv",
}

// DetectEnvironment derives the host context from environment variables and
// container marker files.
//
// # Inputs
//
//   - lookup: Environment variable reader; nil means os.LookupEnv.
//   - fileExists: Filesystem marker check; nil means os.Stat.
//
// # Outputs
//
//   - Environment: Detected context. Never fails; unknown signals simply
//     yield the zero value.
func DetectEnvironment(lookup EnvReader, fileExists func(path string) bool) Environment {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if fileExists == nil {
		fileExists = func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		}
	}

	env := Environment{}

	if _, ok := lookup("KUBERNETES_SERVICE_HOST"); ok {
		env.InContainer = true
	}
	if v, ok := lookup("STACKDASH_IN_CONTAINER"); ok && v != "" && v != "0" && v != "false" {
		env.InContainer = true
	}
	if !env.InContainer {
		for _, marker := range containerMarkerFiles {
			if fileExists(marker) {
				env.InContainer = true
				break
			}
		}
	}

	env.Provider = detectProvider(lookup)
	return env
}

// detectProvider picks at most one cloud provider from well-known variables.
// AWS wins ties, then GCP, then Azure; deployments that set several are
// expected to pin STACKDASH_CLOUD explicitly.
func detectProvider(lookup EnvReader) CloudProvider {
	if v, ok := lookup("STACKDASH_CLOUD"); ok {
		switch CloudProvider(v) {
		case CloudAWS, CloudGCP, CloudAzure:
			return CloudProvider(v)
		}
	}
	awsKeys := []string{"AWS_REGION", "AWS_DEFAULT_REGION", "AWS_EXECUTION_ENV"}
	for _, k := range awsKeys {
		if _, ok := lookup(k); ok {
			return CloudAWS
		}
	}
	gcpKeys := []string{"GOOGLE_CLOUD_PROJECT", "GCP_PROJECT", "GOOGLE_APPLICATION_CREDENTIALS"}
	for _, k := range gcpKeys {
		if _, ok := lookup(k); ok {
			return CloudGCP
		}
	}
	azureKeys := []string{"AZURE_SUBSCRIPTION_ID", "AZURE_TENANT_ID"}
	for _, k := range azureKeys {
		if _, ok := lookup(k); ok {
			return CloudAzure
		}
	}
	return CloudNone
}

// cloudCLIDefinitions maps a provider to its CLI prerequisite. At most one
// of these is appended to the base list per aggregation round.
var cloudCLIDefinitions = map[CloudProvider]PrerequisiteDefinition{
	CloudAWS: {
		Name:        "AWS CLI",
		Command:     "aws",
		VersionArgs: []string{"--version"},
		Required:    false,
		Description: "Manage AWS-hosted stack resources",
		HostOnly:    true,
	},
	CloudGCP: {
		Name:        "gcloud CLI",
		Command:     "gcloud",
		VersionArgs: []string{"--version"},
		Required:    false,
		Description: "Manage Google Cloud-hosted stack resources",
		HostOnly:    true,
	},
	CloudAzure: {
		Name:        "Azure CLI",
		Command:     "az",
		VersionArgs: []string{"version"},
		Required:    false,
		Description: "Manage Azure-hosted stack resources",
		HostOnly:    true,
	},
}

// PrerequisitesFor returns the base prerequisite list plus the provider's
// CLI entry when a cloud environment was detected. Order is stable: base
// list first, conditional entry last.
func PrerequisitesFor(env Environment) []PrerequisiteDefinition {
	defs := BasePrerequisiteDefinitions()
	if cli, ok := cloudCLIDefinitions[env.Provider]; ok {
		defs = append(defs, cli)
	}
	return defs
}

// ProbePolicy decides how a prerequisite is probed in a given environment.
type ProbePolicy int

const (
	// PolicyExecute probes the tool normally via PATH lookup.
	PolicyExecute ProbePolicy = iota

	// PolicyAssumeInstalled skips the probe and reports the tool installed.
	// Applied to host-only tools when running inside a container, where a
	// PATH lookup can never succeed and would produce a false "missing".
	PolicyAssumeInstalled
)

// policyKey indexes the probe policy table.
type policyKey struct {
	inContainer bool
	hostOnly    bool
}

// probePolicyTable is the explicit strategy lookup for probe behavior.
// Keeping it as data makes the policy testable apart from real execution.
var probePolicyTable = map[policyKey]ProbePolicy{
	{inContainer: true, hostOnly: true}:   PolicyAssumeInstalled,
	{inContainer: true, hostOnly: false}:  PolicyExecute,
	{inContainer: false, hostOnly: true}:  PolicyExecute,
	{inContainer: false, hostOnly: false}: PolicyExecute,
}

// PolicyFor returns the probe policy for a prerequisite in the given
// environment.
func PolicyFor(env Environment, def PrerequisiteDefinition) ProbePolicy {
	return probePolicyTable[policyKey{inContainer: env.InContainer, hostOnly: def.HostOnly}]
}
