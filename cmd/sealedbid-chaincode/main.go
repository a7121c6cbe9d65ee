package main

import (
	"fmt"
	"os"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/chiragxy/DLT-ARTCHAIN/internal/sealedbid"
)

func main() {
	chaincode, err := contractapi.NewChaincode(&sealedbid.Contract{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating sealed-bid chaincode: %v\n", err)
		os.Exit(1)
	}

	if err := chaincode.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting sealed-bid chaincode: %v\n", err)
		os.Exit(1)
	}
}
