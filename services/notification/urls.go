package notification

import (
	"net/url"
	"strings"

	"mytelmed/models"
)

// Notification types emitted by the MyTelmed backend.
const (
	TypeAppointmentReminderPatient     = "APPOINTMENT_REMINDER_PATIENT"
	TypeAppointmentConfirmationPatient = "APPOINTMENT_CONFIRMATION_PATIENT"
	TypeAppointmentCancelPatient       = "APPOINTMENT_CANCEL_PATIENT"
	TypeAppointmentBookedPatient       = "APPOINTMENT_BOOKED_PATIENT"

	TypeAppointmentReminderProvider     = "APPOINTMENT_REMINDER_PROVIDER"
	TypeAppointmentConfirmationProvider = "APPOINTMENT_CONFIRMATION_PROVIDER"
	TypeAppointmentCancelProvider       = "APPOINTMENT_CANCEL_PROVIDER"
	TypeAppointmentBookedProvider       = "APPOINTMENT_BOOKED_PROVIDER"

	TypePrescriptionCreatedPatient  = "PRESCRIPTION_CREATED_PATIENT"
	TypePrescriptionExpiringPatient = "PRESCRIPTION_EXPIRING_PATIENT"
	TypePrescriptionReadyPharmacist = "PRESCRIPTION_READY_PHARMACIST"
	TypeFamilyInvitationPatient     = "FAMILY_INVITATION_PATIENT"
	TypeReferralCreatedProvider     = "REFERRAL_CREATED_PROVIDER"
)

const (
	patientAppointmentPath     = "/patient/appointment"
	doctorAppointmentPath      = "/doctor/appointment"
	patientPrescriptionPath    = "/patient/prescription"
	pharmacistPrescriptionPath = "/pharmacist/prescription"
	rootPath                   = "/"
)

var destinations = map[string]string{
	TypeAppointmentReminderPatient:      patientAppointmentPath,
	TypeAppointmentConfirmationPatient:  patientAppointmentPath,
	TypeAppointmentCancelPatient:        patientAppointmentPath,
	TypeAppointmentBookedPatient:        patientAppointmentPath,
	TypeAppointmentReminderProvider:     doctorAppointmentPath,
	TypeAppointmentConfirmationProvider: doctorAppointmentPath,
	TypeAppointmentCancelProvider:       doctorAppointmentPath,
	TypeAppointmentBookedProvider:       doctorAppointmentPath,
	TypePrescriptionCreatedPatient:      patientPrescriptionPath,
	TypePrescriptionExpiringPatient:     patientPrescriptionPath,
	TypePrescriptionReadyPharmacist:     pharmacistPrescriptionPath,
	TypeFamilyInvitationPatient:         "/patient/family",
	TypeReferralCreatedProvider:         "/doctor/referral",
}

// ResolveURL maps a notification type and its data to an in-app path.
// An explicit data.URL always wins; unknown types resolve to "/".
func ResolveURL(notificationType string, data models.NotificationData) string {
	if data.URL != "" {
		return data.URL
	}

	base, ok := destinations[notificationType]
	if !ok {
		return rootPath
	}

	switch {
	case strings.Contains(base, "/appointment") && data.AppointmentID != "":
		return base + "/" + url.PathEscape(data.AppointmentID.String())
	case strings.Contains(base, "/prescription") && data.PrescriptionID != "":
		return base + "/" + url.PathEscape(data.PrescriptionID.String())
	}
	return base
}
