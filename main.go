package main

import "github.com/mselser95/nft-orders/cmd"

func main() {
	cmd.Execute()
}
