// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command outline summarizes Python source files.
//
// Usage:
//
//	outline <file>...               analyze input-files/<file>, write parsed-files/<stem>.json
//	outline analyze <file>...       same as above
//	outline watch <file>...         re-analyze on every save
//	outline serve                   run the HTTP API
//	outline history list <file>     list stored snapshots of a file
//	outline history show <id>       print one stored snapshot
package main

import (
	"os"
)

func main() {
	a := newApp(os.Stdout, os.Stderr)
	err := a.rootCmd().Execute()
	a.close()
	if err != nil {
		a.printError(err)
		os.Exit(1)
	}
}
