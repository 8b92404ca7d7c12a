package main

import "github.com/xiaonanln/mapworld/components/server"

func main() {
	server.Start()
}
