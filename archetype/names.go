package archetype

// Short names of the domain objects the workflows touch.
const (
	Customer       = "party.customerperson"
	Patient        = "party.patientpet"
	User           = "security.user"
	Practice       = "party.organisationPractice"
	Location       = "party.organisationLocation"
	Till           = "party.organisationTill"
	Appointment    = "act.customerAppointment"
	CustomerTask   = "act.customerTask"
	Invoice        = "act.customerAccountChargesInvoice"
	Payment        = "act.customerAccountPayment"
	ClinicalEvent  = "act.patientClinicalEvent"
	PatientWeight  = "act.patientWeight"
	CustomerCharge = "act.customerAccountCharges*"
)

// Node names.
const (
	NodeName        = "name"
	NodeStatus      = "status"
	NodeStartTime   = "startTime"
	NodeEndTime     = "endTime"
	NodeArrival     = "arrivalTime"
	NodeCustomer    = "customer"
	NodePatient     = "patient"
	NodeClinician   = "clinician"
	NodeLocation    = "location"
	NodeTill        = "till"
	NodeAmount      = "amount"
	NodeReason      = "reason"
	NodeOwner       = "owner"
	NodeWorkList    = "worklist"
	NodeSourceAct   = "source"
	NodeDescription = "description"
)

// Act statuses.
const (
	StatusPending    = "PENDING"
	StatusCheckedIn  = "CHECKED_IN"
	StatusInProgress = "IN_PROGRESS"
	StatusBilled     = "BILLED"
	StatusCompleted  = "COMPLETED"
	StatusOnHold     = "ON_HOLD"
	StatusPosted     = "POSTED"
	StatusCancelled  = "CANCELLED"
)
