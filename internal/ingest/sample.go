package ingest

// SampleCSV is the downloadable upload template.
func SampleCSV() string {
	return `customerId,amount,daysOverdue,previousContacts
CUST001,5000,30,2
CUST002,15000,90,5
CUST003,2000,15,1
CUST004,25000,120,8
CUST005,3500,45,3
`
}

// SeedCSV is the demo portfolio loaded into an empty store at startup.
func SeedCSV() string {
	return `customerId,amount,daysOverdue,previousContacts
CUST001,4500,25,1
CUST002,18000,95,6
CUST003,2200,15,0
CUST004,32000,135,10
CUST005,3800,45,2
CUST006,7500,60,3
CUST007,1500,20,1
CUST008,22000,110,7
CUST009,5200,35,2
CUST010,9800,70,4
`
}
