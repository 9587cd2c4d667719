package main

import "github.com/nguyentranbao-ct/livechat/cmd"

func main() {
	cmd.Execute()
}
