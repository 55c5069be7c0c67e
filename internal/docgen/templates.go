package docgen

import "html/template"

// Document page templates. Each renders a full standalone page sized for an
// 8.5x11in capture.

var enrollmentTmpl = template.Must(template.New("enrollment").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<style>
body { font-family: 'Open Sans', 'Helvetica Neue', Arial, sans-serif; background: #fff; margin: 0; padding: 0; color: #333; }
.page { width: 8.5in; min-height: 11in; margin: 0 auto; padding: 0.75in 1in; box-sizing: border-box; position: relative; }
.header { display: flex; align-items: center; padding-bottom: 20px; border-bottom: 3px solid #1a3a5c; margin-bottom: 30px; }
.logo-mark { width: 65px; height: 65px; background: #1a3a5c; border-radius: 50%; display: flex; align-items: center; justify-content: center; color: #fff; font-family: Georgia, serif; font-size: 24px; font-weight: 700; margin-right: 20px; }
.uni-name { font-family: Georgia, serif; font-size: 20px; font-weight: 700; color: #1a3a5c; margin: 0; }
.dept-name { font-size: 13px; color: #555; margin-top: 4px; }
.doc-date { font-size: 12px; color: #555; margin-bottom: 25px; }
.doc-title { font-family: Georgia, serif; font-size: 18px; font-weight: 700; text-align: center; color: #1a3a5c; margin: 25px 0; padding: 12px 0; border-top: 1px solid #ddd; border-bottom: 1px solid #ddd; text-transform: uppercase; letter-spacing: 2px; }
.body-text { font-size: 12px; line-height: 1.8; margin-bottom: 20px; }
.info-table { width: 100%; border-collapse: collapse; margin: 25px 0; }
.info-table tr { border-bottom: 1px solid #eee; }
.info-table td { padding: 10px 8px; font-size: 12px; vertical-align: top; }
.info-table td:first-child { width: 35%; color: #555; font-weight: 600; }
.signature { margin-top: 60px; font-size: 12px; }
.sig-line { width: 250px; border-top: 1px solid #333; padding-top: 6px; margin-top: 40px; }
.footer { position: absolute; bottom: 0.5in; left: 1in; right: 1in; font-size: 9px; color: #999; border-top: 1px solid #eee; padding-top: 8px; }
</style>
</head>
<body>
<div class="page">
  <div class="header">
    <div class="logo-mark">{{.Initials}}</div>
    <div>
      <p class="uni-name">{{.Organization}}</p>
      <div class="dept-name">Office of the Registrar</div>
    </div>
  </div>
  <div class="doc-date">{{.Date}}</div>
  <div class="doc-title">Certificate of Enrollment</div>
  <div class="body-text">
    This is to certify that the student named below is enrolled at {{.Organization}}
    for the {{.Term}} term and is registered in good standing with a full-time course load.
  </div>
  <table class="info-table">
    <tr><td>Student Name</td><td>{{.Name}}</td></tr>
    <tr><td>Student ID</td><td>{{.StudentID}}</td></tr>
    <tr><td>Program of Study</td><td>{{.Major}}</td></tr>
    <tr><td>Enrollment Status</td><td>Full-Time ({{.Credits}} credit hours)</td></tr>
    <tr><td>Current Term</td><td>{{.Term}}</td></tr>
    <tr><td>Initial Enrollment</td><td>Fall {{.EnrollYear}}</td></tr>
    <tr><td>Expected Graduation</td><td>Spring {{.GradYear}}</td></tr>
  </table>
  <div class="signature">
    <div class="sig-line">University Registrar</div>
  </div>
  <div class="footer">Document ID: {{.DocumentID}} | Generated: {{.Date}} | This certificate is valid for 90 days from date of issue.</div>
</div>
</body>
</html>`))

var employmentTmpl = template.Must(template.New("employment").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<style>
body { font-family: 'Open Sans', 'Helvetica Neue', Arial, sans-serif; background: #fff; margin: 0; padding: 0; color: #333; }
.page { width: 8.5in; min-height: 11in; margin: 0 auto; padding: 0.75in 1in; box-sizing: border-box; position: relative; }
.header { display: flex; align-items: center; padding-bottom: 20px; border-bottom: 3px solid #5c1a1a; margin-bottom: 30px; }
.logo-mark { width: 65px; height: 65px; background: #5c1a1a; border-radius: 50%; display: flex; align-items: center; justify-content: center; color: #fff; font-family: Georgia, serif; font-size: 24px; font-weight: 700; margin-right: 20px; }
.uni-name { font-family: Georgia, serif; font-size: 20px; font-weight: 700; color: #5c1a1a; margin: 0; }
.dept-name { font-size: 13px; color: #555; margin-top: 4px; }
.doc-date { font-size: 12px; color: #555; margin-bottom: 25px; }
.doc-title { font-family: Georgia, serif; font-size: 18px; font-weight: 700; text-align: center; color: #5c1a1a; margin: 25px 0; padding: 12px 0; border-top: 1px solid #ddd; border-bottom: 1px solid #ddd; text-transform: uppercase; letter-spacing: 2px; }
.body-text { font-size: 12px; line-height: 1.8; margin-bottom: 20px; }
.info-table { width: 100%; border-collapse: collapse; margin: 25px 0; }
.info-table tr { border-bottom: 1px solid #eee; }
.info-table td { padding: 10px 8px; font-size: 12px; }
.info-table td:first-child { width: 35%; color: #555; font-weight: 600; }
.signature { margin-top: 60px; font-size: 12px; }
.sig-line { width: 250px; border-top: 1px solid #333; padding-top: 6px; margin-top: 40px; }
.footer { position: absolute; bottom: 0.5in; left: 1in; right: 1in; font-size: 9px; color: #999; border-top: 1px solid #eee; padding-top: 8px; }
</style>
</head>
<body>
<div class="page">
  <div class="header">
    <div class="logo-mark">{{.Initials}}</div>
    <div>
      <p class="uni-name">{{.Organization}}</p>
      <div class="dept-name">Office of Human Resources</div>
    </div>
  </div>
  <div class="doc-date">{{.Date}}</div>
  <div class="doc-title">Verification of Employment</div>
  <div class="body-text">
    To Whom It May Concern: this letter confirms that the individual named below is
    currently employed by {{.Organization}} in an active faculty position.
  </div>
  <table class="info-table">
    <tr><td>Employee Name</td><td>{{.Name}}</td></tr>
    <tr><td>Position</td><td>{{.Position}}</td></tr>
    <tr><td>Department</td><td>{{.Department}}</td></tr>
    <tr><td>Employment Status</td><td>Full-Time, Active</td></tr>
    <tr><td>Date of Hire</td><td>August {{.HireYear}}</td></tr>
  </table>
  <div class="body-text">
    Please contact the Office of Human Resources with any questions regarding this verification.
  </div>
  <div class="signature">
    <div class="sig-line">Director of Human Resources</div>
  </div>
  <div class="footer">Document ID: {{.DocumentID}} | Generated: {{.Date}} | Valid for 90 days from date of issue.</div>
</div>
</body>
</html>`))

var identityCardTmpl = template.Must(template.New("idcard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<style>
body { font-family: 'Open Sans', 'Helvetica Neue', Arial, sans-serif; background: #e8e8e8; margin: 0; padding: 0; display: flex; align-items: center; justify-content: center; min-height: 100vh; }
.card { width: 5.4in; height: 3.4in; background: #fff; border-radius: 14px; box-shadow: 0 4px 18px rgba(0,0,0,0.25); overflow: hidden; }
.card-band { background: #5c1a1a; color: #fff; padding: 14px 20px; display: flex; align-items: center; }
.logo-mark { width: 40px; height: 40px; background: #fff; color: #5c1a1a; border-radius: 50%; display: flex; align-items: center; justify-content: center; font-family: Georgia, serif; font-size: 16px; font-weight: 700; margin-right: 12px; }
.org-name { font-family: Georgia, serif; font-size: 15px; font-weight: 700; }
.band-sub { font-size: 9px; opacity: 0.85; letter-spacing: 1px; text-transform: uppercase; }
.card-body { display: flex; padding: 16px 20px; }
.photo { width: 1.1in; height: 1.4in; background: #ccc; border: 1px solid #999; margin-right: 18px; display: flex; align-items: center; justify-content: center; color: #888; font-size: 9px; }
.fields { flex: 1; font-size: 11px; line-height: 1.9; }
.fields b { display: inline-block; width: 80px; color: #555; font-weight: 600; }
.holder-name { font-size: 15px; font-weight: 700; margin-bottom: 6px; }
.card-footer { padding: 0 20px 10px; font-size: 8px; color: #999; }
</style>
</head>
<body>
<div class="card">
  <div class="card-band">
    <div class="logo-mark">{{.Initials}}</div>
    <div>
      <div class="org-name">{{.Organization}}</div>
      <div class="band-sub">Faculty Identification</div>
    </div>
  </div>
  <div class="card-body">
    <div class="photo">PHOTO</div>
    <div class="fields">
      <div class="holder-name">{{.Name}}</div>
      <div><b>ID No.</b> {{.EmployeeID}}</div>
      <div><b>Role</b> {{.Position}}</div>
      <div><b>Dept.</b> {{.Department}}</div>
      <div><b>Valid thru</b> 06/{{.ExpiryYear}}</div>
    </div>
  </div>
  <div class="card-footer">Property of {{.Organization}}. If found, return to campus security.</div>
</div>
</body>
</html>`))

var k12EmploymentTmpl = template.Must(template.New("k12").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<style>
body { font-family: 'Open Sans', 'Helvetica Neue', Arial, sans-serif; background: #fff; margin: 0; padding: 0; color: #333; }
.page { width: 8.5in; min-height: 11in; margin: 0 auto; padding: 0.75in 1in; box-sizing: border-box; position: relative; }
.header { display: flex; align-items: center; padding-bottom: 20px; border-bottom: 3px solid #1a5c2e; margin-bottom: 30px; }
.logo-mark { width: 65px; height: 65px; background: #1a5c2e; border-radius: 50%; display: flex; align-items: center; justify-content: center; color: #fff; font-family: Georgia, serif; font-size: 24px; font-weight: 700; margin-right: 20px; }
.uni-name { font-family: Georgia, serif; font-size: 20px; font-weight: 700; color: #1a5c2e; margin: 0; }
.dept-name { font-size: 13px; color: #555; margin-top: 4px; }
.doc-date { font-size: 12px; color: #555; margin-bottom: 25px; }
.doc-title { font-family: Georgia, serif; font-size: 18px; font-weight: 700; text-align: center; color: #1a5c2e; margin: 25px 0; padding: 12px 0; border-top: 1px solid #ddd; border-bottom: 1px solid #ddd; text-transform: uppercase; letter-spacing: 2px; }
.body-text { font-size: 12px; line-height: 1.8; margin-bottom: 20px; }
.info-table { width: 100%; border-collapse: collapse; margin: 25px 0; }
.info-table tr { border-bottom: 1px solid #eee; }
.info-table td { padding: 10px 8px; font-size: 12px; }
.info-table td:first-child { width: 35%; color: #555; font-weight: 600; }
.signature { margin-top: 60px; font-size: 12px; }
.sig-line { width: 250px; border-top: 1px solid #333; padding-top: 6px; margin-top: 40px; }
.footer { position: absolute; bottom: 0.5in; left: 1in; right: 1in; font-size: 9px; color: #999; border-top: 1px solid #eee; padding-top: 8px; }
</style>
</head>
<body>
<div class="page">
  <div class="header">
    <div class="logo-mark">{{.Initials}}</div>
    <div>
      <p class="uni-name">{{.Organization}}</p>
      <div class="dept-name">District Human Resources Department</div>
    </div>
  </div>
  <div class="doc-date">{{.Date}}</div>
  <div class="doc-title">Educator Employment Verification</div>
  <div class="body-text">
    This letter verifies that the educator named below holds an active teaching
    appointment with {{.Organization}} for the current academic year.
  </div>
  <table class="info-table">
    <tr><td>Educator Name</td><td>{{.Name}}</td></tr>
    <tr><td>Position</td><td>{{.Position}}</td></tr>
    <tr><td>Grade Level</td><td>{{.GradeLevel}}</td></tr>
    <tr><td>Employment Status</td><td>Full-Time, Active</td></tr>
    <tr><td>Contract Year</td><td>{{.ContractYear}}</td></tr>
  </table>
  <div class="signature">
    <div class="sig-line">District HR Coordinator</div>
  </div>
  <div class="footer">Document ID: {{.DocumentID}} | Generated: {{.Date}} | Valid for 90 days from date of issue.</div>
</div>
</body>
</html>`))
