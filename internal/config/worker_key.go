package config

type WorkerKeyStruct struct {
	CertificateRequestsQueue string
	IntegrityIncidentsQueue  string
}

var WorkerKey = &WorkerKeyStruct{
	CertificateRequestsQueue: "certificate_requests_queue",
	IntegrityIncidentsQueue:  "integrity_incidents_queue",
}
