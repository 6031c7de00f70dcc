// go-twi
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-twi.
//
// go-twi is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-twi is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-twi; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package detection

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultBlocklist returns USB serial devices that never carry a register
// bridge. Entries are VID:PID in hexadecimal, case-insensitive.
func DefaultBlocklist() []string {
	return []string{
		"1366:0105", // SEGGER J-Link CDC
		"0D28:0204", // DAPLink CMSIS-DAP
	}
}

// VIDPID formats a USB vendor and product ID pair as "VVVV:PPPP". It returns
// "" when either half is not a 16-bit hex number.
func VIDPID(vid, pid string) string {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(vid), "0x"), 16, 16)
	if err != nil {
		return ""
	}
	p, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(pid), "0x"), 16, 16)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%04X:%04X", v, p)
}

// IsBlocked reports whether vidpid matches a blocklist entry. Malformed
// entries never match.
func IsBlocked(vidpid string, blocklist []string) bool {
	if vidpid == "" {
		return false
	}
	for _, entry := range blocklist {
		vid, pid, ok := strings.Cut(entry, ":")
		if ok && VIDPID(vid, pid) == strings.ToUpper(vidpid) {
			return true
		}
	}
	return false
}

// IsPathIgnored reports whether devicePath names the same device as one of
// ignorePaths after cleaning. Comparison is case-insensitive so COM ports
// match however they are spelled.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}
	want := normalizedPath(devicePath)
	for _, p := range ignorePaths {
		if p != "" && normalizedPath(p) == want {
			return true
		}
	}
	return false
}

func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
