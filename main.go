package main

import "github.com/Martian-dev/crm-sync-infra/internal/app"

func main() {
	app.Execute()
}
