/*
Copyright © 2026 Loam <oss@loamhq.dev>
*/
package main

import "github.com/loamhq/ctxtidy/cmd"

func main() {
	cmd.Execute()
}
