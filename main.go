// SPDX-License-Identifier: MPL-2.0

package main

import (
	cmd "github.com/kubestrap/kubestrap/cmd/kubestrap"
)

func main() {
	cmd.Execute()
}
