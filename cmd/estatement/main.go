// estatement downloads monthly e-statements from KlikBCA internet banking
// and optionally converts them to text.
//
// Usage:
//
//	estatement <account-no> <ibank-username> <ibank-password> [flags]
//	estatement convert <file.pdf>...
//	estatement history [account-no] --db <file>
package main

import (
	"errors"
	"os"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			printError("%v", ue.err)
			rootCmd.Usage()
		} else {
			printError("%s", failureLine(err))
		}
		os.Exit(1)
	}
}
