/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package main

import (
	"os"

	"github.com/refaktory/kube-workspace/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
