package main

import "github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/cmd/officeauth/cmd"

func main() {
	cmd.Execute()
}
