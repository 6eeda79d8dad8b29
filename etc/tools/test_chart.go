package main

import (
	"fmt"
	"os"

	"vybe-pulse/internal/clients_api/vybe"
	"vybe-pulse/internal/features/dashboard"
)

// go run etc/tools/test_chart.go
// in etc/charts/holders_USDC.png
func main() {
	fmt.Println("Generating test holders chart...")

	holders := []vybe.TokenHolder{
		{Rank: 1, OwnerName: "Binance", OwnerAddress: "5tzFkiKscXHK5ZXCGbXZxdw7gTjjD1mBwuoFbhUvuAi9", Balance: "1200000000", ValueUSD: "1200000000", PercentageOfSupply: 4.2},
		{Rank: 2, OwnerName: "", OwnerAddress: "3emsAVdmGKERbHjmGfQ6oZ1e35dkf5iYcS6U4CPKFVaa", Balance: "800000000", ValueUSD: "800000000", PercentageOfSupply: 2.8},
		{Rank: 3, OwnerName: "Kraken", OwnerAddress: "FWznbcNXWQuHTawe9RxvQ2LdCENssh12dsznf4RiouN5", Balance: "450000000", ValueUSD: "450000000", PercentageOfSupply: 1.6},
		{Rank: 4, OwnerName: "", OwnerAddress: "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM", Balance: "300000000", ValueUSD: "300000000", PercentageOfSupply: 1.1},
		{Rank: 5, OwnerName: "Coinbase", OwnerAddress: "H8sMJSCQxfKiFTCfDR3DUMLPwcRbM61LGFJ8N4dK3WjS", Balance: "150000000", ValueUSD: "150000000", PercentageOfSupply: 0.5},
	}

	chartPath, err := dashboard.RenderHoldersChart("etc", "USDC", holders)
	if err != nil {
		fmt.Printf("Error generating chart: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Chart generated successfully: %s\n", chartPath)
	fmt.Println("Open the file to see the result!")
}
