package email

const subjectEscalationDefault = "Your Request for Human Assistance"
