/*
 * Copyright (C) 2025-2025, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package options

import (
	"flag"
	"fmt"
)

type Options struct {
	Config      string
	KubeConfig  string
	LogfilePath string
	LogFileSize int
}

// InitFlags initializes the command line flags for the operator.
// It sets up the following flags:
//
//	-config: Path to the operator config.json (falls back to $KUBE_WORKSPACE_OPERATOR_CONFIG)
//	-kube_config: Path to the kubectl config
//	-log_file_size: Maximum size of the log file in megabytes (default: 0, unlimited)
//	-log_file_path: Path to the log file
//
// The config flag is optional: when neither the flag nor the environment
// variable is set, the operator runs with built-in defaults.
// Returns an error if the options struct is nil.
func (opt *Options) InitFlags() error {
	if opt == nil {
		return fmt.Errorf("the options is not initialized")
	}
	flag.StringVar(&opt.Config, "config", "", "Path to the operator config.json")
	flag.StringVar(&opt.KubeConfig, "kube_config", "", "Path to the kubectl config")
	flag.IntVar(&opt.LogFileSize, "log_file_size", 0,
		"Defines the maximum size of the log file. Unit is megabytes. "+
			"The default is 0, which means that the size is unlimited.")
	flag.StringVar(&opt.LogfilePath, "log_file_path", "", "Path to the log file")
	flag.Parse()

	return nil
}
