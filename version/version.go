/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package version

import (
	"fmt"
	"io"
)

const (
	Name         = `networktap`
	MajorVersion = 1
	MinorVersion = 4
	PointVersion = 0
)

var (
	BuildDate string = `unknown`
	BuildID   string = `dev`
)

func GetVersion() string {
	return fmt.Sprintf("%d.%d.%d", MajorVersion, MinorVersion, PointVersion)
}

func PrintVersion(wtr io.Writer) {
	fmt.Fprintf(wtr, "%s version:\t%s\n", Name, GetVersion())
	fmt.Fprintf(wtr, "Build date:\t%s\n", BuildDate)
	fmt.Fprintf(wtr, "Build ID:\t%s\n", BuildID)
}
