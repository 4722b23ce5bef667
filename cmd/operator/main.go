/*
 * Copyright (C) 2025-2026, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package main

import (
	"fmt"

	"github.com/refaktory/kube-workspace/pkg/server"
)

func main() {
	s, err := server.NewServer()
	if err != nil {
		fmt.Println("failed to new server, err: ", err.Error())
		return
	}
	s.Start()
}
