// pangolin-deploy provisions a complete Pangolin exchange on an EVM network
// and computes pair addresses offline.
package main

import "os"

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}
