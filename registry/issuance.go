package registry

import (
	"fmt"
	"log/slog"

	"github.com/ruteri/certificate-registry/interfaces"
)

// IssueCertificate registers one certificate issued by caller.
// On any error the registry is left unchanged.
func (r *Registry) IssueCertificate(caller interfaces.Principal, certificateID string, subject interfaces.CertificateSubject) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.authorizedIssuers[caller] {
		return fmt.Errorf("%w: caller %s", interfaces.ErrNotAuthorized, caller.Hex())
	}

	records, _, err := r.prepareLocked(caller, []string{certificateID}, []interfaces.CertificateSubject{subject})
	if err != nil {
		return err
	}

	r.commitLocked(records)
	r.events.append(issuedEvent(records[0]))

	r.log.Debug("Certificate issued",
		slog.String("certificateID", certificateID),
		slog.String("fingerprint", records[0].Fingerprint.String()),
		slog.String("issuer", caller.Hex()))
	return nil
}

// IssueCertificatesBulk registers certificateIDs[i] for subjects[i] as a
// single transaction. Every item is validated before anything is written;
// if any item fails the whole batch is rejected and the error names the
// first failing index.
//
// On success a CertificateIssued event is emitted per item in input order,
// followed by one CertificatesIssuedBulk event.
func (r *Registry) IssueCertificatesBulk(caller interfaces.Principal, certificateIDs []string, subjects []interfaces.CertificateSubject) error {
	if len(certificateIDs) != len(subjects) {
		return fmt.Errorf("%w: %d ids, %d subjects", interfaces.ErrLengthMismatch, len(certificateIDs), len(subjects))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.authorizedIssuers[caller] {
		return fmt.Errorf("%w: caller %s", interfaces.ErrNotAuthorized, caller.Hex())
	}

	records, failedIndex, err := r.prepareLocked(caller, certificateIDs, subjects)
	if err != nil {
		return fmt.Errorf("certificate %d: %w", failedIndex, err)
	}

	r.commitLocked(records)

	events := make([]interfaces.Event, 0, len(records)+1)
	ids := make([]string, 0, len(records))
	fingerprints := make([]interfaces.ContentHash, 0, len(records))
	for _, record := range records {
		events = append(events, issuedEvent(record))
		ids = append(ids, record.CertificateID)
		fingerprints = append(fingerprints, record.Fingerprint)
	}
	events = append(events, interfaces.Event{
		Kind:           interfaces.CertificatesIssuedBulk,
		Timestamp:      r.now(),
		CertificateIDs: ids,
		Fingerprints:   fingerprints,
		Issuer:         caller,
	})
	r.events.append(events...)

	r.log.Debug("Certificates issued in bulk",
		slog.Int("count", len(records)),
		slog.String("issuer", caller.Hex()))
	return nil
}

// prepareLocked validates a batch against the committed state and against
// earlier items of the same batch, and builds the records to commit.
// It never writes. On failure it returns the index of the offending item.
func (r *Registry) prepareLocked(caller interfaces.Principal, certificateIDs []string, subjects []interfaces.CertificateSubject) ([]interfaces.CertificateRecord, int, error) {
	now := r.now()
	records := make([]interfaces.CertificateRecord, 0, len(certificateIDs))
	batchIDs := make(map[string]struct{}, len(certificateIDs))
	batchHashes := make(map[interfaces.ContentHash]string, len(certificateIDs))

	for i, id := range certificateIDs {
		_, seenInBatch := batchIDs[id]
		if r.certificates[id].Exists || seenInBatch {
			return nil, i, fmt.Errorf("%w: %q", interfaces.ErrDuplicateID, id)
		}

		fingerprint := interfaces.FingerprintOf(subjects[i])
		if existing, used := r.usedHashes[fingerprint]; used {
			return nil, i, fmt.Errorf("%w: %s is issued as %q", interfaces.ErrDuplicateContent, fingerprint, existing)
		}
		if existing, used := batchHashes[fingerprint]; used {
			return nil, i, fmt.Errorf("%w: %s is issued as %q", interfaces.ErrDuplicateContent, fingerprint, existing)
		}

		batchIDs[id] = struct{}{}
		batchHashes[fingerprint] = id
		records = append(records, interfaces.CertificateRecord{
			CertificateID: id,
			Name:          subjects[i].Name,
			RollNumber:    subjects[i].RollNumber,
			Marks:         subjects[i].Marks,
			Fingerprint:   fingerprint,
			Issuer:        caller,
			IssueDate:     now,
			Exists:        true,
		})
	}

	return records, -1, nil
}

func (r *Registry) commitLocked(records []interfaces.CertificateRecord) {
	for _, record := range records {
		r.certificates[record.CertificateID] = record
		r.usedHashes[record.Fingerprint] = record.CertificateID
	}
}

func issuedEvent(record interfaces.CertificateRecord) interfaces.Event {
	return interfaces.Event{
		Kind:          interfaces.CertificateIssued,
		Timestamp:     record.IssueDate,
		CertificateID: record.CertificateID,
		Fingerprint:   record.Fingerprint,
		Issuer:        record.Issuer,
	}
}
