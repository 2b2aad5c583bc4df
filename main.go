package main

import "tradeforms/internal/app"

func main() {
	app.Main()
}
